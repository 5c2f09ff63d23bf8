// Package character holds an animated character rig in memory: a joint tree,
// morph sliders, per model layer frame tables and skinned vertices.
package character

import (
	"github.com/pkg/errors"
)

// Model is one layer of frame data. Layer 0 is normally the skinned rest
// model, following layers are animations.
type Model struct {
	Name  string
	Times []float64
}

type Character struct {
	Name string

	models   []Model
	root     *Joint
	joints   []*Joint
	sliders  []*Slider
	vertices []*Vertex
}

func New(name string) *Character {
	c := &Character{Name: name}
	c.root = &Joint{char: c}
	c.joints = []*Joint{c.root}
	return c
}

// AddModel registers a new model layer and returns its index.
func (c *Character) AddModel(name string, times []float64) int {
	c.models = append(c.models, Model{Name: name, Times: times})
	return len(c.models) - 1
}

func (c *Character) NumModels() int     { return len(c.models) }
func (c *Character) Model(i int) Model  { return c.models[i] }
func (c *Character) Root() *Joint       { return c.root }
func (c *Character) NumJoints() int     { return len(c.joints) }
func (c *Character) Joint(i int) *Joint { return c.joints[i] }
func (c *Character) NumSliders() int    { return len(c.sliders) }
func (c *Character) Slider(i int) *Slider {
	return c.sliders[i]
}

// Joints returns the joints depth-first, every parent before its children.
// The root is always the first element.
func (c *Character) Joints() []*Joint {
	return append([]*Joint(nil), c.joints...)
}

func (c *Character) Sliders() []*Slider {
	return append([]*Slider(nil), c.sliders...)
}

func (c *Character) Vertices() []*Vertex {
	return c.vertices
}

// NumComponents counts joints (root included) and sliders.
func (c *Character) NumComponents() int {
	return len(c.joints) + len(c.sliders)
}

// Component returns joints first, then sliders.
func (c *Character) Component(i int) Component {
	if i < len(c.joints) {
		return c.joints[i]
	}
	return c.sliders[i-len(c.joints)]
}

func (c *Character) FindJoint(name string) *Joint {
	for _, j := range c.joints {
		if SameName(j.name, name) {
			return j
		}
	}
	return nil
}

func (c *Character) FindSlider(name string) *Slider {
	for _, s := range c.sliders {
		if SameName(s.name, name) {
			return s
		}
	}
	return nil
}

// NewJoint attaches a new joint under parent, or under the root when parent is nil.
func (c *Character) NewJoint(name string, parent *Joint) (*Joint, error) {
	if name == "" {
		return nil, errors.Errorf("Joint name must not be empty in %q", c.Name)
	}
	if c.FindJoint(name) != nil {
		return nil, errors.Errorf("Duplicate joint %q in %q", name, c.Name)
	}
	if parent == nil {
		parent = c.root
	} else if parent.char != c {
		return nil, errors.Errorf("Parent %q of joint %q belongs to another character", parent.name, name)
	}

	j := &Joint{name: name, char: c, parent: parent}
	parent.children = append(parent.children, j)
	c.rebuildOrder()
	return j, nil
}

func (c *Character) NewSlider(name string) (*Slider, error) {
	if c.FindSlider(name) != nil {
		return nil, errors.Errorf("Duplicate slider %q in %q", name, c.Name)
	}
	s := &Slider{name: name, char: c}
	c.sliders = append(c.sliders, s)
	return s, nil
}

// RemoveSlider drops the slider from the character. Returns false if it was not there.
func (c *Character) RemoveSlider(s *Slider) bool {
	if s.char != c {
		return false
	}
	for i := range c.sliders {
		if c.sliders[i] == s {
			c.sliders = append(c.sliders[:i], c.sliders[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Character) NewVertex(model int) *Vertex {
	v := &Vertex{Model: model, Index: len(c.vertices)}
	c.vertices = append(c.vertices, v)
	return v
}

// NumFrames returns the longest frame table of any joint or slider in model.
func (c *Character) NumFrames(model int) int {
	n := 0
	for _, j := range c.joints {
		if f := j.NumFrames(model); f > n {
			n = f
		}
	}
	for _, s := range c.sliders {
		if f := s.NumFrames(model); f > n {
			n = f
		}
	}
	return n
}

func (c *Character) rebuildOrder() {
	order := make([]*Joint, 0, len(c.joints))
	stack := []*Joint{c.root}
	for len(stack) != 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, j)
		for i := len(j.children) - 1; i >= 0; i-- {
			stack = append(stack, j.children[i])
		}
	}
	c.joints = order
}

// Collection is the set of characters loaded together.
type Collection struct {
	Characters []*Character
}

func (cc *Collection) NumCharacters() int         { return len(cc.Characters) }
func (cc *Collection) Character(i int) *Character { return cc.Characters[i] }
func (cc *Collection) Add(c *Character)           { cc.Characters = append(cc.Characters, c) }

func (cc *Collection) FindCharacter(name string) *Character {
	for _, c := range cc.Characters {
		if SameName(c.Name, name) {
			return c
		}
	}
	return nil
}
