package gltfutils

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/optchar/utils"
)

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// Save writes doc to path, as .glb when the extension asks for it.
func Save(doc *gltf.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", path)
	}
	defer f.Close()

	encoder := gltf.NewEncoder(f)
	encoder.AsBinary = strings.EqualFold(filepath.Ext(path), ".glb")
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrapf(err, "Failed to encode %q", path)
	}
	return nil
}

// NodeParents maps every node to the node listing it as a child, -1 for
// top level nodes.
func NodeParents(doc *gltf.Document) []int {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			parents[c] = i
		}
	}
	return parents
}

// LocalMatrix is the rest transform of node, from its matrix if set or from
// its translation, rotation and scale.
func LocalMatrix(n *gltf.Node) mgl64.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return utils.Mat4From32(m)
	}
	return utils.TRS(
		utils.Vec3From32(n.TranslationOrDefault()),
		utils.QuatFromXYZW(n.RotationOrDefault()),
		utils.Vec3From32(n.ScaleOrDefault()))
}

// SetLocalMatrix stores m as translation, rotation and scale.
func SetLocalMatrix(n *gltf.Node, m mgl64.Mat4) {
	t, r, s := utils.DecomposeTRS(m)
	n.Matrix = gltf.DefaultMatrix
	n.Translation = utils.Vec3To32(t)
	n.Rotation = utils.QuatToXYZW(r)
	n.Scale = utils.Vec3To32(s)
}

// WorldMatrix multiplies local matrices from node up to, but excluding, stop.
// A stop of -1 runs to the scene root.
func WorldMatrix(parents []int, node, stop int, local func(int) mgl64.Mat4) mgl64.Mat4 {
	m := mgl64.Ident4()
	for n := node; n != -1 && n != stop; n = parents[n] {
		m = local(n).Mul4(m)
	}
	return m
}

// DetachNode removes node from its parent or from every scene root list.
func DetachNode(doc *gltf.Document, parents []int, node int) {
	if p := parents[node]; p != -1 {
		doc.Nodes[p].Children = removeIndex(doc.Nodes[p].Children, uint32(node))
	} else {
		for _, sc := range doc.Scenes {
			sc.Nodes = removeIndex(sc.Nodes, uint32(node))
		}
	}
	parents[node] = -1
}

// AttachNode makes node a child of parent, or a root of the default scene for
// a parent of -1.
func AttachNode(doc *gltf.Document, parents []int, node, parent int) {
	if parent != -1 {
		doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, uint32(node))
	} else {
		sc := DefaultScene(doc)
		sc.Nodes = append(sc.Nodes, uint32(node))
	}
	parents[node] = parent
}

func DefaultScene(doc *gltf.Document) *gltf.Scene {
	if len(doc.Scenes) == 0 {
		doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	}
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene]
	}
	return doc.Scenes[0]
}

func removeIndex(list []uint32, v uint32) []uint32 {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
