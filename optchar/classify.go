package optchar

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/optchar/character"
	"github.com/mogaika/optchar/utils"
)

// Classify annotates every joint and slider of ch as static, identity and/or
// empty. No removal decision is made here.
func Classify(ch *character.Character, ann *Annotations, tolerance float64) {
	ClassifyJoints(ch, ann, tolerance)
	ClassifySliders(ch, ann, tolerance)
}

// ClassifyJoints walks the joint tree depth-first, parents before children.
func ClassifyJoints(ch *character.Character, ann *Annotations, tolerance float64) {
	stack := []*character.Joint{ch.Root()}
	for len(stack) != 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		classifyJoint(ch, j, ann.Reset(j), tolerance)

		for i := j.NumChildren() - 1; i >= 0; i-- {
			stack = append(stack, j.Child(i))
		}
	}
}

func classifyJoint(ch *character.Character, j *character.Joint, an *Annotation, tolerance float64) {
	different := false
	hasVertices := false

	for m := 0; m < ch.NumModels(); m++ {
		if !j.HasModel(m) {
			continue
		}
		if j.HasVertices(m) {
			hasVertices = true
		}
		for f := 0; f < j.NumFrames(m) && !different; f++ {
			mat := j.Frame(m, f)
			an.Frames++
			if an.Frames == 1 {
				an.StaticMat = mat
			} else if !utils.Mat4AlmostEqual(mat, an.StaticMat, tolerance) {
				different = true
			}
		}
	}

	if !different {
		an.Flags |= FlagStatic
		if an.Frames == 0 || utils.Mat4AlmostEqual(an.StaticMat, mgl64.Ident4(), tolerance) {
			an.Flags |= FlagIdentity
		}
	}
	if !hasVertices {
		an.Flags |= FlagEmpty
	}
}

// ClassifySliders is the scalar counterpart of ClassifyJoints: identity means
// a constant zero.
func ClassifySliders(ch *character.Character, ann *Annotations, tolerance float64) {
	for i := 0; i < ch.NumSliders(); i++ {
		s := ch.Slider(i)
		an := ann.Reset(s)

		different := false
		hasVertices := false
		for m := 0; m < ch.NumModels(); m++ {
			if !s.HasModel(m) {
				continue
			}
			if s.HasVertices(m) {
				hasVertices = true
			}
			for f := 0; f < s.NumFrames(m) && !different; f++ {
				value := s.Frame(m, f)
				an.Frames++
				if an.Frames == 1 {
					an.StaticValue = value
				} else if !utils.AlmostEqual(value, an.StaticValue, tolerance) {
					different = true
				}
			}
		}

		if !different {
			an.Flags |= FlagStatic
			if an.Frames == 0 || utils.AlmostEqual(an.StaticValue, 0, tolerance) {
				an.Flags |= FlagIdentity
			}
		}
		if !hasVertices {
			an.Flags |= FlagEmpty
		}
	}
}
