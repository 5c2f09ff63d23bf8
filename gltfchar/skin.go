package gltfchar

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/optchar/character"
)

func jointsAttr(k int) string  { return fmt.Sprintf("JOINTS_%d", k) }
func weightsAttr(k int) string { return fmt.Sprintf("WEIGHTS_%d", k) }

func (s *Scene) loadVertices(b *binding, jointOfNode map[int]*character.Joint, bound map[primKey]int) error {
	doc := s.Doc
	claimed := make(map[int]bool)
	for _, ni := range s.skinnedNodes(b.skin) {
		mi := int(*doc.Nodes[ni].Mesh)
		for pi, prim := range doc.Meshes[mi].Primitives {
			key := primKey{mesh: mi, prim: pi}
			if other, ok := bound[key]; ok {
				if other != b.skin {
					warnShared(key, b.skin, other)
				}
				continue
			}
			pb, err := s.loadPrimitive(b, key, prim, jointOfNode)
			if err != nil {
				return errors.Wrapf(err, "Mesh %d primitive %d", mi, pi)
			}
			bound[key] = b.skin
			if pb == nil {
				continue
			}
			b.prims = append(b.prims, pb)
			if !claimed[mi] {
				claimed[mi] = true
				b.meshes = append(b.meshes, mi)
			}
		}
	}
	return nil
}

func (s *Scene) loadPrimitive(b *binding, key primKey, prim *gltf.Primitive, jointOfNode map[int]*character.Joint) (*primBinding, error) {
	doc := s.Doc
	skin := doc.Skins[b.skin]
	pb := &primBinding{primKey: key}

	for k := 0; ; k++ {
		ji, okJoints := prim.Attributes[jointsAttr(k)]
		wi, okWeights := prim.Attributes[weightsAttr(k)]
		if !okJoints || !okWeights {
			break
		}
		if int(ji) >= len(doc.Accessors) || int(wi) >= len(doc.Accessors) {
			return nil, errors.Errorf("Set %d accessor out of range", k)
		}
		joints, err := modeler.ReadJoints(doc, doc.Accessors[ji], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %s", jointsAttr(k))
		}
		weights, err := modeler.ReadWeights(doc, doc.Accessors[wi], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read %s", weightsAttr(k))
		}
		if len(joints) != len(weights) {
			return nil, errors.Errorf("Set %d has %d joints but %d weights", k, len(joints), len(weights))
		}

		if pb.vertices == nil {
			pb.vertices = make([]*character.Vertex, len(joints))
			for i := range pb.vertices {
				pb.vertices[i] = b.char.NewVertex(0)
			}
		}
		if len(joints) != len(pb.vertices) {
			return nil, errors.Errorf("Set %d has %d vertices, expected %d", k, len(joints), len(pb.vertices))
		}

		for i := range joints {
			for c := 0; c < 4; c++ {
				w := weights[i][c]
				if w == 0 {
					continue
				}
				idx := int(joints[i][c])
				if idx >= len(skin.Joints) {
					return nil, errors.Errorf("Vertex %d references joint %d of %d", i, idx, len(skin.Joints))
				}
				pb.vertices[i].AddInfluence(jointOfNode[int(skin.Joints[idx])], float64(w))
			}
		}
	}

	if pb.vertices == nil {
		return nil, nil
	}
	return pb, nil
}

// writeVertices stores the memberships of every bound primitive back, four
// per JOINTS_n / WEIGHTS_n set.
func (s *Scene) writeVertices(b *binding, index map[*character.Joint]int) error {
	doc := s.Doc
	for _, pb := range b.prims {
		prim := doc.Meshes[pb.mesh].Primitives[pb.prim]

		sets := 1
		for _, v := range pb.vertices {
			if n := (v.NumInfluences() + 3) / 4; n > sets {
				sets = n
			}
		}

		for k := 0; k < sets; k++ {
			joints := make([][4]uint16, len(pb.vertices))
			weights := make([][4]float32, len(pb.vertices))
			for i, v := range pb.vertices {
				for c := 0; c < 4; c++ {
					e := k*4 + c
					if e >= v.NumInfluences() {
						break
					}
					in := v.Influence(e)
					ji, ok := index[in.Joint]
					if !ok {
						return errors.Errorf("Mesh %d primitive %d vertex %d references joint %q outside the skin",
							pb.mesh, pb.prim, i, in.Joint.Name())
					}
					joints[i][c] = uint16(ji)
					weights[i][c] = float32(in.Weight)
				}
			}
			prim.Attributes[jointsAttr(k)] = modeler.WriteJoints(doc, joints)
			prim.Attributes[weightsAttr(k)] = modeler.WriteWeights(doc, weights)
		}
		for k := sets; ; k++ {
			_, okJoints := prim.Attributes[jointsAttr(k)]
			_, okWeights := prim.Attributes[weightsAttr(k)]
			if !okJoints && !okWeights {
				break
			}
			delete(prim.Attributes, jointsAttr(k))
			delete(prim.Attributes, weightsAttr(k))
		}
	}
	return nil
}
