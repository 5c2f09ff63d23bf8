package character

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var ErrReparentCycle = errors.New("Reparent would make a joint its own ancestor")

type reparentUpdate struct {
	joint  *Joint
	parent *Joint
	frames map[int][]mgl64.Mat4
}

// DoReparent commits every parent change queued with Joint.ReparentTo.
//
// All world transforms are taken from the tree as it was before the call, so
// the order in which joints were queued does not matter. A moved joint gets
// new local frames inverse(newParentWorld) * oldWorld for every model it or
// either of its parent chains appears in. Joints queued with a nil parent are
// dropped from the character together with any descendants left under them.
// On error nothing is changed.
func (c *Character) DoReparent() (bool, error) {
	var moved []*Joint
	for _, j := range c.joints {
		if j.pending {
			moved = append(moved, j)
		}
	}
	if len(moved) == 0 {
		return false, nil
	}

	for _, j := range moved {
		if j.newParent != nil && j.WouldCycle(j.newParent) {
			return false, errors.Wrapf(ErrReparentCycle, "%q under %q in %q", j.name, j.newParent.name, c.Name)
		}
	}

	updates := make([]reparentUpdate, 0, len(moved))
	for _, j := range moved {
		u := reparentUpdate{joint: j, parent: j.newParent}
		if u.parent != nil {
			u.frames = make(map[int][]mgl64.Mat4)
			for m := range c.models {
				if !j.HasModel(m) && !j.chainHasModel(m) && !u.parent.chainHasModel(m) {
					continue
				}
				n := j.chainFrames(m)
				if pn := u.parent.chainFrames(m); pn > n {
					n = pn
				}
				frames := make([]mgl64.Mat4, n)
				for f := range frames {
					frames[f] = u.parent.NetFrame(m, f).Inv().Mul4(j.NetFrame(m, f))
				}
				u.frames[m] = frames
			}
		}
		updates = append(updates, u)
	}

	for _, u := range updates {
		if p := u.joint.parent; p != nil {
			p.removeChild(u.joint)
		}
	}
	for _, u := range updates {
		j := u.joint
		j.parent = u.parent
		j.pending = false
		j.newParent = nil
		if u.parent == nil {
			continue
		}
		u.parent.children = append(u.parent.children, j)
		for m, frames := range u.frames {
			j.SetFrames(m, frames)
		}
	}

	c.rebuildOrder()
	return true, nil
}

func (j *Joint) removeChild(child *Joint) {
	for i, ch := range j.children {
		if ch == child {
			j.children = append(j.children[:i], j.children[i+1:]...)
			return
		}
	}
}
