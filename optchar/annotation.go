package optchar

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/optchar/character"
)

// Annotation is the per run side data of one joint or slider.
type Annotation struct {
	Flags Flags
	// Frames counts the frames looked at while classifying.
	Frames int

	// first observed value, matrix for joints and scalar for sliders
	StaticMat   mgl64.Mat4
	StaticValue float64
}

// Annotations keys annotations by component identity. It lives for one
// optimization pass and is never attached to the components themselves.
type Annotations struct {
	m map[character.Component]*Annotation
}

func NewAnnotations() *Annotations {
	return &Annotations{m: make(map[character.Component]*Annotation)}
}

// Reset creates a fresh annotation for c, replacing any previous one.
func (a *Annotations) Reset(c character.Component) *Annotation {
	an := &Annotation{StaticMat: mgl64.Ident4()}
	a.m[c] = an
	return an
}

// For returns the annotation of c, creating an empty one if needed.
func (a *Annotations) For(c character.Component) *Annotation {
	if an, ok := a.m[c]; ok {
		return an
	}
	return a.Reset(c)
}

// Get returns nil for components that were never annotated.
func (a *Annotations) Get(c character.Component) *Annotation {
	return a.m[c]
}

func (a *Annotations) Flags(c character.Component) Flags {
	if an := a.m[c]; an != nil {
		return an.Flags
	}
	return 0
}
