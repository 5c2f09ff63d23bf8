package character

// Slider is a named scalar channel, usually a morph target weight.
type Slider struct {
	name string
	char *Character

	tables   [][]float64
	vertices []int
}

func (s *Slider) Name() string            { return s.name }
func (s *Slider) HasModel(model int) bool { return model < len(s.tables) && s.tables[model] != nil }
func (s *Slider) NumFrames(model int) int { return len(tableOf(s.tables, model)) }

// Frame returns the value at frame f of model, repeating the last frame past
// the end of the table. A slider absent from model reads as zero.
func (s *Slider) Frame(model, f int) float64 {
	t := tableOf(s.tables, model)
	if len(t) == 0 {
		return 0
	}
	if f >= len(t) {
		f = len(t) - 1
	}
	return t[f]
}

func (s *Slider) SetFrames(model int, values []float64) {
	for len(s.tables) <= model {
		s.tables = append(s.tables, nil)
	}
	if values == nil {
		values = []float64{}
	}
	s.tables[model] = values
}

// SetVertexCount records how many vertices of model the slider morphs.
func (s *Slider) SetVertexCount(model, n int) {
	for len(s.vertices) <= model {
		s.vertices = append(s.vertices, 0)
	}
	s.vertices[model] = n
}

func (s *Slider) HasVertices(model int) bool {
	return model < len(s.vertices) && s.vertices[model] > 0
}
