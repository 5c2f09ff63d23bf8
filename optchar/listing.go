package optchar

import (
	"fmt"
	"io"
	"strings"

	"github.com/mogaika/optchar/character"
)

// HierarchyEntry is one line of a hierarchy listing.
type HierarchyEntry struct {
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent" yaml:"parent"`
	Depth  int    `json:"depth" yaml:"depth"`
	Slider bool   `json:"slider,omitempty" yaml:"slider,omitempty"`
	Flags  Flags  `json:"flags" yaml:"flags"`
}

// Label is the classification suffix shown after the name.
func (e HierarchyEntry) Label() string {
	var b strings.Builder
	if e.Flags.IsIdentity() {
		b.WriteString(" (identity)")
	} else if e.Flags.IsStatic() {
		b.WriteString(" (static)")
	}
	if e.Flags.IsEmpty() {
		b.WriteString(" (empty)")
	}
	return b.String()
}

type Listing struct {
	Character string           `json:"character" yaml:"character"`
	Joints    int              `json:"joints" yaml:"joints"`
	Entries   []HierarchyEntry `json:"entries" yaml:"entries"`
	// AsCommands lists the tree as reparent directives instead.
	AsCommands bool `json:"-" yaml:"-"`
}

// Hierarchy lists the joints under the root depth-first, followed by the
// sliders. The root itself is not listed.
func Hierarchy(ch *character.Character, ann *Annotations) Listing {
	l := Listing{Character: ch.Name, Joints: ch.NumJoints()}

	type item struct {
		joint *character.Joint
		depth int
	}
	root := ch.Root()
	stack := make([]item, 0, root.NumChildren())
	for i := root.NumChildren() - 1; i >= 0; i-- {
		stack = append(stack, item{root.Child(i), 0})
	}
	for len(stack) != 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		l.Entries = append(l.Entries, HierarchyEntry{
			Name:   it.joint.Name(),
			Parent: it.joint.Parent().Name(),
			Depth:  it.depth,
			Flags:  ann.Flags(it.joint),
		})
		for i := it.joint.NumChildren() - 1; i >= 0; i-- {
			stack = append(stack, item{it.joint.Child(i), it.depth + 1})
		}
	}

	for i := 0; i < ch.NumSliders(); i++ {
		s := ch.Slider(i)
		l.Entries = append(l.Entries, HierarchyEntry{
			Name:   s.Name(),
			Slider: true,
			Flags:  ann.Flags(s),
		})
	}
	return l
}

// WriteTo prints the listing in one of the two text forms:
//
//	Character: name
//	hip (static)
//	  knee
//	3 joints.
//
// or, for AsCommands, one " -p joint,parent" per joint on a single line.
func (l Listing) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Character: %s\n", l.Character)
	if l.AsCommands {
		for _, e := range l.Entries {
			if !e.Slider {
				fmt.Fprintf(&b, " -p %s,%s", e.Name, e.Parent)
			}
		}
		b.WriteString("\n")
	} else {
		for _, e := range l.Entries {
			fmt.Fprintf(&b, "%s%s%s\n", strings.Repeat("  ", e.Depth), e.Name, e.Label())
		}
	}
	fmt.Fprintf(&b, "%d joints.\n", l.Joints)

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
