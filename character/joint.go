package character

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Component is anything in a character that carries per model frame data:
// a *Joint or a *Slider.
type Component interface {
	Name() string
	HasModel(model int) bool
	NumFrames(model int) int
	HasVertices(model int) bool
}

type Joint struct {
	name     string
	char     *Character
	parent   *Joint
	children []*Joint

	// indexed by model, nil when the joint does not appear in that model
	tables [][]mgl64.Mat4

	members map[*Vertex]struct{}
	exposed bool

	pending   bool
	newParent *Joint
}

func (j *Joint) Name() string             { return j.name }
func (j *Joint) Character() *Character    { return j.char }
func (j *Joint) Parent() *Joint           { return j.parent }
func (j *Joint) IsRoot() bool             { return j.char.root == j }
func (j *Joint) NumChildren() int         { return len(j.children) }
func (j *Joint) Child(i int) *Joint       { return j.children[i] }
func (j *Joint) Children() []*Joint       { return append([]*Joint(nil), j.children...) }
func (j *Joint) IsExposed() bool          { return j.exposed }
func (j *Joint) Expose()                  { j.exposed = true }
func (j *Joint) HasModel(model int) bool  { return model < len(j.tables) && j.tables[model] != nil }
func (j *Joint) NumFrames(model int) int  { return len(j.table(model)) }
func (j *Joint) table(m int) []mgl64.Mat4 { return tableOf(j.tables, m) }

// Frame returns the local transform at frame f of model. Frames past the end
// of the table repeat the last one; a joint absent from the model is identity.
func (j *Joint) Frame(model, f int) mgl64.Mat4 {
	t := j.table(model)
	if len(t) == 0 {
		return mgl64.Ident4()
	}
	if f >= len(t) {
		f = len(t) - 1
	}
	return t[f]
}

func (j *Joint) SetFrames(model int, frames []mgl64.Mat4) {
	for len(j.tables) <= model {
		j.tables = append(j.tables, nil)
	}
	if frames == nil {
		frames = []mgl64.Mat4{}
	}
	j.tables[model] = frames
}

// NetFrame is the world transform at frame f: parent world times local.
func (j *Joint) NetFrame(model, f int) mgl64.Mat4 {
	m := mgl64.Ident4()
	for n := j; n != nil; n = n.parent {
		m = n.Frame(model, f).Mul4(m)
	}
	return m
}

// chainFrames is the longest table along j and its ancestors.
func (j *Joint) chainFrames(model int) int {
	n := 0
	for p := j; p != nil; p = p.parent {
		if f := p.NumFrames(model); f > n {
			n = f
		}
	}
	return n
}

func (j *Joint) chainHasModel(model int) bool {
	for p := j; p != nil; p = p.parent {
		if p.HasModel(model) {
			return true
		}
	}
	return false
}

// HasVertices reports whether any vertex of model is influenced by the joint.
func (j *Joint) HasVertices(model int) bool {
	for v := range j.members {
		if v.Model == model {
			return true
		}
	}
	return false
}

func (j *Joint) NumMemberships() int { return len(j.members) }

// ReparentTo queues a parent change that takes effect on the next
// Character.DoReparent. A nil parent removes the joint from the tree.
func (j *Joint) ReparentTo(p *Joint) {
	j.newParent = p
	j.pending = p != j.parent || p == nil
}

func (j *Joint) effectiveParent() *Joint {
	if j.pending {
		return j.newParent
	}
	return j.parent
}

// WouldCycle reports whether queueing p as the parent of j would make j its
// own ancestor, taking already queued changes into account.
func (j *Joint) WouldCycle(p *Joint) bool {
	for n := p; n != nil; n = n.effectiveParent() {
		if n == j {
			return true
		}
	}
	return false
}

// MoveVerticesTo transfers every vertex membership of j onto dst. Weights on
// a vertex that already references dst are summed, otherwise dst is appended.
func (j *Joint) MoveVerticesTo(dst *Joint) {
	if dst == j || dst == nil {
		return
	}
	for v := range j.members {
		w := v.Membership(j)
		v.remove(j)
		v.AddInfluence(dst, w)
	}
}

func tableOf[T any](tables [][]T, m int) []T {
	if m < len(tables) {
		return tables[m]
	}
	return nil
}
