package gltfchar

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// targetNames reads the conventional extras.targetNames of a mesh.
func targetNames(mesh *gltf.Mesh) []string {
	extras, ok := mesh.Extras.(map[string]interface{})
	if !ok {
		return nil
	}
	switch names := extras["targetNames"].(type) {
	case []string:
		return names
	case []interface{}:
		out := make([]string, len(names))
		for i, n := range names {
			out[i], _ = n.(string)
		}
		return out
	}
	return nil
}

func setTargetNames(mesh *gltf.Mesh, names []string) {
	extras, ok := mesh.Extras.(map[string]interface{})
	if !ok {
		return
	}
	if _, ok := extras["targetNames"]; ok {
		extras["targetNames"] = names
	}
}

func numTargets(mesh *gltf.Mesh) int {
	n := 0
	for _, p := range mesh.Primitives {
		if len(p.Targets) > n {
			n = len(p.Targets)
		}
	}
	return n
}

// morphedVertices counts the vertices target k moves or bends.
func (s *Scene) morphedVertices(mesh *gltf.Mesh, k int) (int, error) {
	count := 0
	for _, p := range mesh.Primitives {
		if k >= len(p.Targets) {
			continue
		}
		var moved []bool
		for _, attr := range []string{"POSITION", "NORMAL"} {
			ai, ok := p.Targets[k][attr]
			if !ok || int(ai) >= len(s.Doc.Accessors) {
				continue
			}
			deltas, err := modeler.ReadPosition(s.Doc, s.Doc.Accessors[ai], nil)
			if err != nil {
				return 0, errors.Wrapf(err, "Failed to read target %d %s", k, attr)
			}
			if moved == nil {
				moved = make([]bool, len(deltas))
			}
			for i, d := range deltas {
				if i < len(moved) && d != [3]float32{} {
					moved[i] = true
				}
			}
		}
		for _, m := range moved {
			if m {
				count++
			}
		}
	}
	return count, nil
}

// meshNodes lists the nodes instancing mesh mi.
func (s *Scene) meshNodes(mi int) []int {
	var nodes []int
	for i, n := range s.Doc.Nodes {
		if n.Mesh != nil && int(*n.Mesh) == mi {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

func (s *Scene) loadSliders(b *binding) error {
	doc := s.Doc
	for _, mi := range b.meshes {
		mesh := doc.Meshes[mi]
		n := numTargets(mesh)
		if n == 0 {
			continue
		}
		names := targetNames(mesh)
		nodes := s.meshNodes(mi)

		for k := 0; k < n; k++ {
			name := fmt.Sprintf("morph%d", k)
			if k < len(names) && names[k] != "" {
				name = names[k]
			}
			b.targets[name] = append(b.targets[name], targetRef{mesh: mi, target: k})
			if b.char.FindSlider(name) != nil {
				continue
			}

			sl, err := b.char.NewSlider(name)
			if err != nil {
				return err
			}
			count, err := s.morphedVertices(mesh, k)
			if err != nil {
				return errors.Wrapf(err, "Mesh %d", mi)
			}
			sl.SetVertexCount(0, count)

			rest := 0.0
			if k < len(mesh.Weights) {
				rest = float64(mesh.Weights[k])
			}
			for _, ni := range nodes {
				if w := doc.Nodes[ni].Weights; k < len(w) {
					rest = float64(w[k])
					break
				}
			}
			sl.SetFrames(0, []float64{rest})

			for li, l := range s.layers {
				var wt *weightTrack
				for _, ni := range nodes {
					if wt = l.weights[ni]; wt != nil {
						break
					}
				}
				if wt == nil || k >= wt.width {
					if b.touched[li] || wt != nil {
						sl.SetFrames(li+1, []float64{rest})
					}
					continue
				}
				frames := make([]float64, len(l.times))
				for f, t := range l.times {
					frames[f] = wt.sample(t, k)
				}
				sl.SetFrames(li+1, frames)
			}
		}
	}
	return nil
}

// writeSliders drops the morph targets of every slider the character lost.
func (s *Scene) writeSliders(b *binding) {
	doc := s.Doc
	drop := make(map[int]map[int]bool)
	for name, refs := range b.targets {
		if b.char.FindSlider(name) != nil {
			continue
		}
		for _, r := range refs {
			if drop[r.mesh] == nil {
				drop[r.mesh] = make(map[int]bool)
			}
			drop[r.mesh][r.target] = true
		}
	}

	meshes := make([]int, 0, len(drop))
	for mi := range drop {
		meshes = append(meshes, mi)
	}
	sort.Ints(meshes)

	for _, mi := range meshes {
		mesh := doc.Meshes[mi]
		n := numTargets(mesh)
		keep := make([]int, 0, n)
		for k := 0; k < n; k++ {
			if !drop[mi][k] {
				keep = append(keep, k)
			}
		}

		for _, p := range mesh.Primitives {
			targets := make([]gltf.Attribute, 0, len(keep))
			for _, k := range keep {
				if k < len(p.Targets) {
					targets = append(targets, p.Targets[k])
				}
			}
			p.Targets = targets
		}
		if len(mesh.Weights) != 0 {
			mesh.Weights = pickFloats(mesh.Weights, keep)
		}
		if names := targetNames(mesh); names != nil {
			kept := make([]string, 0, len(keep))
			for _, k := range keep {
				if k < len(names) {
					kept = append(kept, names[k])
				}
			}
			setTargetNames(mesh, kept)
		}

		for _, ni := range s.meshNodes(mi) {
			node := doc.Nodes[ni]
			if len(node.Weights) != 0 {
				node.Weights = pickFloats(node.Weights, keep)
			}
			for _, l := range s.layers {
				wt := l.weights[ni]
				if wt == nil || wt.width == 0 {
					continue
				}
				anim := doc.Animations[l.anim]
				if len(keep) == 0 {
					removeChannels(anim, ni, gltf.TRSWeights)
					continue
				}
				rows := len(wt.values) / wt.width
				values := make([]float32, 0, rows*len(keep))
				for r := 0; r < rows; r++ {
					for _, k := range keep {
						if k < wt.width {
							values = append(values, wt.values[r*wt.width+k])
						}
					}
				}
				output := gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, values))
				for _, ch := range anim.Channels {
					if ch.Target.Node != nil && int(*ch.Target.Node) == ni && ch.Target.Path == gltf.TRSWeights && ch.Sampler != nil {
						anim.Samplers[*ch.Sampler].Output = output
					}
				}
				wt.values, wt.width = values, len(keep)
			}
		}
	}
}

func pickFloats(values []float32, keep []int) []float32 {
	out := make([]float32, 0, len(keep))
	for _, k := range keep {
		if k < len(values) {
			out = append(out, values[k])
		}
	}
	return out
}
