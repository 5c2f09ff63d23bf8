// Package gltfchar maps the skins of a glTF document onto characters and
// writes an optimized character back into the document.
//
// Every skin becomes one character. Its joints hang below a synthetic root
// that stands for the deepest node above all of the skin's top level joints
// (the anchor). Model layer 0 is the rest pose; layer i+1 is animation i of
// the document, resampled on the union of its key times. Skinned vertices
// come from the JOINTS_n / WEIGHTS_n attributes of every mesh instanced with
// the skin, sliders from the morph targets of those meshes.
package gltfchar

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/utils"
	"github.com/mogaika/optchar/utils/gltfutils"
)

type primKey struct {
	mesh, prim int
}

type primBinding struct {
	primKey
	vertices []*character.Vertex
}

type targetRef struct {
	mesh, target int
}

type binding struct {
	skin     int
	char     *character.Character
	anchor   int
	rootNode int

	nodeOf       map[*character.Joint]int
	loadedParent map[*character.Joint]*character.Joint
	touched      []bool

	prims   []*primBinding
	meshes  []int
	targets map[string][]targetRef
}

// Scene is a glTF document together with the characters loaded from it.
type Scene struct {
	Doc        *gltf.Document
	Collection *character.Collection

	parents  []int
	layers   []*layer
	bindings []*binding
}

func Open(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	return Load(doc)
}

// Load builds one character per skin of doc.
func Load(doc *gltf.Document) (*Scene, error) {
	s := &Scene{
		Doc:        doc,
		Collection: &character.Collection{},
		parents:    gltfutils.NodeParents(doc),
	}
	for ai := range doc.Animations {
		l, err := loadLayer(doc, ai)
		if err != nil {
			return nil, err
		}
		if l.name == "" {
			l.name = fmt.Sprintf("animation%d", ai)
		}
		s.layers = append(s.layers, l)
	}

	bound := make(map[primKey]int)
	for si := range doc.Skins {
		b, err := s.loadSkin(si, bound)
		if err != nil {
			return nil, errors.Wrapf(err, "Skin %d", si)
		}
		s.bindings = append(s.bindings, b)
		s.Collection.Add(b.char)
	}
	return s, nil
}

// Character returns the character of skin si.
func (s *Scene) Character(si int) *character.Character {
	return s.bindings[si].char
}

func (s *Scene) Save(path string) error {
	return gltfutils.Save(s.Doc, path)
}

func (s *Scene) WriteBinary(w io.Writer) error {
	return gltfutils.ExportBinary(w, s.Doc)
}

func (s *Scene) depth(node int) int {
	d := 0
	for n := s.parents[node]; n != -1; n = s.parents[n] {
		d++
	}
	return d
}

func (s *Scene) isAncestor(a, node int) bool {
	if a == -1 {
		return true
	}
	for n := s.parents[node]; n != -1; n = s.parents[n] {
		if n == a {
			return true
		}
	}
	return false
}

func (s *Scene) restLocal(node int) mgl64.Mat4 {
	return gltfutils.LocalMatrix(s.Doc.Nodes[node])
}

func (s *Scene) loadSkin(si int, bound map[primKey]int) (*binding, error) {
	doc := s.Doc
	skin := doc.Skins[si]

	name := skin.Name
	if name == "" {
		name = fmt.Sprintf("skin%d", si)
	}
	b := &binding{
		skin:         si,
		char:         character.New(name),
		anchor:       -1,
		rootNode:     -1,
		nodeOf:       make(map[*character.Joint]int),
		loadedParent: make(map[*character.Joint]*character.Joint),
		touched:      make([]bool, len(s.layers)),
		targets:      make(map[string][]targetRef),
	}

	inSkin := make(map[int]bool, len(skin.Joints))
	for _, n := range skin.Joints {
		if int(n) >= len(doc.Nodes) {
			return nil, errors.Errorf("Joint node %d out of range", n)
		}
		inSkin[int(n)] = true
	}
	jointParent := func(node int) int {
		for p := s.parents[node]; p != -1; p = s.parents[p] {
			if inSkin[p] {
				return p
			}
		}
		return -1
	}

	order := make([]int, 0, len(skin.Joints))
	for _, n := range skin.Joints {
		order = append(order, int(n))
	}
	sort.SliceStable(order, func(i, j int) bool { return s.depth(order[i]) < s.depth(order[j]) })

	var tops []int
	for _, n := range order {
		if jointParent(n) == -1 {
			tops = append(tops, n)
		}
	}
	if len(tops) != 0 {
		b.anchor = s.parents[tops[0]]
		for b.anchor != -1 {
			all := true
			for _, n := range tops {
				all = all && s.isAncestor(b.anchor, n)
			}
			if all {
				break
			}
			b.anchor = s.parents[b.anchor]
		}
	}

	b.char.AddModel("rest", []float64{0})
	for m, l := range s.layers {
		b.char.AddModel(l.name, utils.FloatArray32to64(l.times))
		for _, n := range order {
			stop := jointParent(n)
			if stop == -1 {
				stop = b.anchor
			}
			for c := n; c != -1 && c != stop; c = s.parents[c] {
				if l.animates(c) {
					b.touched[m] = true
				}
			}
		}
	}

	jointOfNode := make(map[int]*character.Joint, len(order))
	for _, n := range order {
		if _, ok := jointOfNode[n]; ok {
			continue
		}
		parent := b.char.Root()
		stop := b.anchor
		if p := jointParent(n); p != -1 {
			parent = jointOfNode[p]
			stop = p
		}

		jname := doc.Nodes[n].Name
		if jname == "" {
			jname = fmt.Sprintf("node%d", n)
		} else if b.char.FindJoint(jname) != nil {
			jname = fmt.Sprintf("%s.%d", jname, n)
		}

		j, err := b.char.NewJoint(jname, parent)
		if err != nil {
			return nil, err
		}
		jointOfNode[n] = j
		b.nodeOf[j] = n
		b.loadedParent[j] = parent

		j.SetFrames(0, []mgl64.Mat4{gltfutils.WorldMatrix(s.parents, n, stop, s.restLocal)})
		for li, l := range s.layers {
			if !b.touched[li] {
				continue
			}
			animated := false
			for c := n; c != -1 && c != stop; c = s.parents[c] {
				animated = animated || l.animates(c)
			}
			if !animated {
				j.SetFrames(li+1, []mgl64.Mat4{j.Frame(0, 0)})
				continue
			}
			frames := make([]mgl64.Mat4, len(l.times))
			for f, t := range l.times {
				frames[f] = gltfutils.WorldMatrix(s.parents, n, stop, func(c int) mgl64.Mat4 {
					return l.localAt(doc, c, t)
				})
			}
			j.SetFrames(li+1, frames)
		}
	}

	if err := s.loadVertices(b, jointOfNode, bound); err != nil {
		return nil, err
	}
	if err := s.loadSliders(b); err != nil {
		return nil, err
	}
	return b, nil
}

// skinnedNodes lists the nodes instancing a mesh with skin si.
func (s *Scene) skinnedNodes(si int) []int {
	var nodes []int
	for i, n := range s.Doc.Nodes {
		if n.Skin != nil && int(*n.Skin) == si && n.Mesh != nil && int(*n.Mesh) < len(s.Doc.Meshes) {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

func warnShared(key primKey, skin, other int) {
	log.Printf("[gltfchar] Mesh %d primitive %d is skinned by skin %d and %d, keeping %d",
		key.mesh, key.prim, other, skin, other)
}
