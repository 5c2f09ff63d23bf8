package gltfchar

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/utils/gltfutils"
)

// Apply writes the characters back into the document. Joints whose parent
// changed are moved in the node tree and get resampled animation channels,
// skins are rebuilt from the surviving joints, vertex memberships and morph
// targets are rewritten. Nodes of removed joints stay in the scene, they are
// only dropped from the skin.
func (s *Scene) Apply() error {
	for _, b := range s.bindings {
		s.writeSliders(b)
	}
	for _, b := range s.bindings {
		if err := s.applySkin(b); err != nil {
			return errors.Wrapf(err, "Character %q", b.char.Name)
		}
	}
	return nil
}

func (s *Scene) applySkin(b *binding) error {
	doc := s.Doc
	skin := doc.Skins[b.skin]
	ch := b.char

	for _, j := range ch.Joints() {
		if j.IsRoot() {
			continue
		}
		node := b.nodeOf[j]
		if j.IsExposed() {
			markExposed(doc.Nodes[node])
		}
		if j.Parent() == b.loadedParent[j] {
			continue
		}

		parent := b.anchor
		if !j.Parent().IsRoot() {
			parent = b.nodeOf[j.Parent()]
		}
		gltfutils.DetachNode(doc, s.parents, node)
		gltfutils.AttachNode(doc, s.parents, node, parent)
		gltfutils.SetLocalMatrix(doc.Nodes[node], j.Frame(0, 0))

		for li, l := range s.layers {
			if !b.touched[li] || !j.HasModel(li+1) || len(l.times) == 0 {
				continue
			}
			frames := make([]mgl64.Mat4, j.NumFrames(li+1))
			for f := range frames {
				frames[f] = j.Frame(li+1, f)
			}
			writeTRS(doc, l.anim, node, l.times, frames)
		}
		b.loadedParent[j] = j.Parent()
	}

	joints := make([]uint32, 0, ch.NumJoints())
	index := make(map[*character.Joint]int, ch.NumJoints())
	if root := ch.Root(); root.NumMemberships() != 0 {
		if b.rootNode == -1 {
			b.rootNode = b.anchor
		}
		if b.rootNode == -1 {
			doc.Nodes = append(doc.Nodes, &gltf.Node{Name: ch.Name + "_root"})
			s.parents = append(s.parents, -1)
			b.rootNode = len(doc.Nodes) - 1
			gltfutils.AttachNode(doc, s.parents, b.rootNode, -1)
			log.Printf("[gltfchar] %s: vertices bound to the root, added node %q", ch.Name, doc.Nodes[b.rootNode].Name)
		}
		index[root] = len(joints)
		joints = append(joints, uint32(b.rootNode))
	}
	for _, j := range ch.Joints() {
		if j.IsRoot() {
			continue
		}
		index[j] = len(joints)
		joints = append(joints, uint32(b.nodeOf[j]))
	}

	if skin.InverseBindMatrices != nil {
		ibm, err := s.remapInverseBinds(skin, joints)
		if err != nil {
			return err
		}
		skin.InverseBindMatrices = gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, ibm))
	}
	skin.Joints = joints

	return s.writeVertices(b, index)
}

// remapInverseBinds keeps the inverse bind matrix of every joint node still in
// the skin and derives one from the rest pose for nodes new to it.
func (s *Scene) remapInverseBinds(skin *gltf.Skin, joints []uint32) ([][4][4]float32, error) {
	doc := s.Doc
	idx := *skin.InverseBindMatrices
	if int(idx) >= len(doc.Accessors) {
		return nil, errors.Errorf("Inverse bind accessor %d out of range", idx)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[idx], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read inverse bind matrices")
	}
	old, ok := data.([][4][4]float32)
	if !ok {
		return nil, errors.Errorf("Unsupported inverse bind matrices %T", data)
	}

	oldIndex := make(map[uint32]int, len(skin.Joints))
	for i, n := range skin.Joints {
		oldIndex[n] = i
	}
	ibm := make([][4][4]float32, len(joints))
	for i, n := range joints {
		if oi, ok := oldIndex[n]; ok && oi < len(old) {
			ibm[i] = old[oi]
			continue
		}
		world := gltfutils.WorldMatrix(s.parents, int(n), -1, s.restLocal)
		ibm[i] = columns(world.Inv())
	}
	return ibm, nil
}

func columns(m mgl64.Mat4) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c][r] = float32(m[c*4+r])
		}
	}
	return out
}

func markExposed(n *gltf.Node) {
	switch extras := n.Extras.(type) {
	case nil:
		n.Extras = map[string]interface{}{"exposed": true}
	case map[string]interface{}:
		extras["exposed"] = true
	default:
		log.Printf("[gltfchar] Node %q has non object extras, not marking it exposed", n.Name)
	}
}
