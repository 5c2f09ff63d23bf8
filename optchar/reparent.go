package optchar

import (
	"fmt"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/config"
)

// ApplyUserReparents queues the requested moves in the order given, resolving
// names separately in every character. Unresolved names produce a warning for
// that character only. It returns whether anything was queued; the caller must
// commit with Character.DoReparent before classifying.
func ApplyUserReparents(coll *character.Collection, directives []config.Reparent) (bool, []Warning) {
	didAnything := false
	var warnings []Warning

	for _, d := range directives {
		for ci := 0; ci < coll.NumCharacters(); ci++ {
			ch := coll.Character(ci)

			child := ch.FindJoint(d.Child)
			parent := ch.Root()
			if d.Parent != "" {
				parent = ch.FindJoint(d.Parent)
			}

			switch {
			case child == nil || child.IsRoot():
				warnings = append(warnings, Warning{
					Character: ch.Name,
					Name:      d.Child,
					Message:   fmt.Sprintf("No joint named %s in %s.", d.Child, ch.Name),
				})
			case parent == nil:
				warnings = append(warnings, Warning{
					Character: ch.Name,
					Name:      d.Parent,
					Message:   fmt.Sprintf("No joint named %s in %s.", d.Parent, ch.Name),
				})
			case child.WouldCycle(parent):
				warnings = append(warnings, Warning{
					Character: ch.Name,
					Name:      d.Parent,
					Message:   fmt.Sprintf("Cannot move %s under its own descendant %s in %s.", d.Child, d.Parent, ch.Name),
				})
			default:
				child.ReparentTo(parent)
				didAnything = true
			}
		}
	}
	return didAnything, warnings
}
