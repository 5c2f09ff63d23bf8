package character

type Influence struct {
	Joint  *Joint
	Weight float64
}

// Vertex is a skinned vertex of one model layer with its ordered joint
// memberships.
type Vertex struct {
	Model int
	Index int

	influences []Influence
}

func (v *Vertex) NumInfluences() int        { return len(v.influences) }
func (v *Vertex) Influence(i int) Influence { return v.influences[i] }

func (v *Vertex) Influences() []Influence {
	return append([]Influence(nil), v.influences...)
}

// SetWeight replaces the weight of the i-th influence keeping its position.
func (v *Vertex) SetWeight(i int, w float64) {
	v.influences[i].Weight = w
}

// AddInfluence adds w to the existing membership of j, or appends a new one.
func (v *Vertex) AddInfluence(j *Joint, w float64) {
	for i := range v.influences {
		if v.influences[i].Joint == j {
			v.influences[i].Weight += w
			return
		}
	}
	v.influences = append(v.influences, Influence{Joint: j, Weight: w})
	if j.members == nil {
		j.members = make(map[*Vertex]struct{})
	}
	j.members[v] = struct{}{}
}

// Membership returns the weight of j on the vertex, 0 if j does not influence it.
func (v *Vertex) Membership(j *Joint) float64 {
	for _, in := range v.influences {
		if in.Joint == j {
			return in.Weight
		}
	}
	return 0
}

func (v *Vertex) NetWeight() float64 {
	net := 0.0
	for _, in := range v.influences {
		net += in.Weight
	}
	return net
}

func (v *Vertex) remove(j *Joint) {
	for i := range v.influences {
		if v.influences[i].Joint == j {
			v.influences = append(v.influences[:i], v.influences[i+1:]...)
			break
		}
	}
	delete(j.members, v)
}
