package optchar

import (
	"fmt"

	"github.com/mogaika/optchar/character"
)

// Warning is a non fatal problem with a user supplied name.
type Warning struct {
	Character string `json:"character,omitempty"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

func (w Warning) String() string {
	return w.Message
}

type PlanResult struct {
	Kept     int
	Exposed  int
	Removed  int
	Warnings []Warning
}

// PlanRemovals marks every component of every character KEEP or REMOVE.
//
// Components named in keep or expose, the unnamed root and, with keepAll,
// everything are kept; exposed names are marked EXPOSE as well. Any other
// component is removed only when it is static or empty, an animated joint
// that moves vertices is never dropped. Names that matched nothing in any
// character are returned as warnings, once per occurrence in keep and expose.
func PlanRemovals(coll *character.Collection, ann *Annotations, keep, expose []string, keepAll bool) PlanResult {
	keepNames := map[string]bool{"": true}
	exposeNames := make(map[string]bool)
	for _, n := range keep {
		keepNames[character.NormalizeName(n)] = true
	}
	for _, n := range expose {
		n = character.NormalizeName(n)
		keepNames[n] = true
		exposeNames[n] = true
	}

	var res PlanResult
	used := make(map[string]bool)
	for ci := 0; ci < coll.NumCharacters(); ci++ {
		ch := coll.Character(ci)
		for i := 0; i < ch.NumComponents(); i++ {
			comp := ch.Component(i)
			an := ann.For(comp)
			name := character.NormalizeName(comp.Name())

			if keepAll || keepNames[name] {
				used[name] = true
				an.Flags = an.Flags.Mark(FlagKeep)
				if exposeNames[name] {
					an.Flags = an.Flags.Mark(FlagExpose)
					res.Exposed++
				}
				res.Kept++
			} else if an.Flags.Removable() {
				an.Flags = an.Flags.Mark(FlagRemove)
				res.Removed++
			} else {
				an.Flags = an.Flags.Mark(FlagKeep)
				res.Kept++
			}
		}
	}

	for _, names := range [][]string{keep, expose} {
		for _, n := range names {
			if !used[character.NormalizeName(n)] {
				res.Warnings = append(res.Warnings, Warning{
					Name:    n,
					Message: fmt.Sprintf("No such joint: %s", n),
				})
			}
		}
	}
	return res
}
