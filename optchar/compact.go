package optchar

import (
	"github.com/pkg/errors"

	"github.com/mogaika/optchar/character"
)

// ErrOrphanJoint means the upward search for a surviving parent ran off the
// top of the tree. The root is never removed, so this is an internal error.
var ErrOrphanJoint = errors.New("No surviving ancestor")

type CompactResult struct {
	Character string   `json:"character"`
	Joints    int      `json:"joints"`
	Kept      int      `json:"kept"`
	Identity  int      `json:"identity"`
	Static    int      `json:"static"`
	Empty     int      `json:"empty"`
	Removed   []string `json:"removed,omitempty"`
	Exposed   []string `json:"exposed,omitempty"`
}

func (r CompactResult) RemovedAny() bool {
	return r.Kept != r.Joints
}

// BestParent walks up from the parent of j to the first joint that is not
// marked for removal.
func BestParent(j *character.Joint, ann *Annotations) (*character.Joint, error) {
	p := j.Parent()
	for p != nil && ann.Flags(p).IsRemove() {
		p = p.Parent()
	}
	if p == nil {
		return nil, errors.Wrapf(ErrOrphanJoint, "joint %q", j.Name())
	}
	return p, nil
}

// Compact applies the removal marks of ch. Removed joints are detached and
// their vertex memberships handed to the nearest kept ancestor; kept joints
// are queued under that ancestor and exposed if requested. Parent changes are
// only queued: the caller commits them with Character.DoReparent once the
// whole tree has been decided.
func Compact(ch *character.Character, ann *Annotations) (CompactResult, error) {
	res := CompactResult{Character: ch.Name, Joints: ch.NumJoints()}

	for _, j := range ch.Joints() {
		if j.IsRoot() {
			res.Kept++
			continue
		}
		flags := ann.Flags(j)

		best, err := BestParent(j, ann)
		if err != nil {
			return res, errors.Wrapf(err, "character %q", ch.Name)
		}

		if flags.IsRemove() {
			j.ReparentTo(nil)
			j.MoveVerticesTo(best)

			switch {
			case flags.IsIdentity():
				res.Identity++
			case flags.IsStatic():
				res.Static++
			case flags.IsEmpty():
				res.Empty++
			}
			res.Removed = append(res.Removed, j.Name())
		} else {
			j.ReparentTo(best)
			if flags.IsExpose() {
				j.Expose()
				res.Exposed = append(res.Exposed, j.Name())
			}
			res.Kept++
		}
	}
	return res, nil
}

type SliderResult struct {
	Character string   `json:"character"`
	Sliders   int      `json:"sliders"`
	Kept      int      `json:"kept"`
	Removed   []string `json:"removed,omitempty"`
}

// CompactSliders drops sliders marked for removal that have no visible
// effect: constant zero or morphing no vertex. Static sliders with a non zero
// value stay since their value would have to be baked into the vertices.
func CompactSliders(ch *character.Character, ann *Annotations) SliderResult {
	res := SliderResult{Character: ch.Name, Sliders: ch.NumSliders()}
	for _, s := range ch.Sliders() {
		flags := ann.Flags(s)
		if flags.IsRemove() && (flags.IsIdentity() || flags.IsEmpty()) {
			ch.RemoveSlider(s)
			res.Removed = append(res.Removed, s.Name())
			continue
		}
		res.Kept++
	}
	return res
}
