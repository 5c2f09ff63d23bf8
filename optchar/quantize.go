package optchar

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mogaika/optchar/character"
)

// ErrZeroMembership is returned for a vertex whose joint memberships sum to
// exactly zero. Such input is malformed and aborts the run.
var ErrZeroMembership = errors.New("Vertex joint memberships sum to zero")

// weights closer than this count as unchanged
const changeEpsilon = 1e-12

type QuantizeResult struct {
	Character string `json:"character"`
	Vertices  int    `json:"vertices"`
	Changed   int    `json:"changed"`
}

// Quantize normalizes, and with a non zero quantum rounds, the memberships of
// every vertex of ch.
func Quantize(ch *character.Character, quantum float64) (QuantizeResult, error) {
	res := QuantizeResult{Character: ch.Name}
	for _, v := range ch.Vertices() {
		if v.NumInfluences() == 0 {
			continue
		}
		changed, err := QuantizeVertex(v, quantum)
		if err != nil {
			return res, errors.Wrapf(err, "%s: vertex %d", ch.Name, v.Index)
		}
		res.Vertices++
		if changed {
			res.Changed++
		}
	}
	return res, nil
}

// QuantizeVertex scales the memberships of v to sum to 1, rounds each to the
// nearest multiple of quantum (unless quantum is 0) and adds the remaining
// roundoff to the largest membership, the first one on ties. Entry order is
// kept. It reports whether any weight changed.
func QuantizeVertex(v *character.Vertex, quantum float64) (bool, error) {
	n := v.NumInfluences()
	if n == 0 {
		return false, nil
	}

	raw := make([]float64, n)
	net := 0.0
	for i := range raw {
		raw[i] = v.Influence(i).Weight
		net += raw[i]
	}
	if net == 0 {
		return false, ErrZeroMembership
	}

	factor := 1.0 / net
	net = 0
	largest := 0
	values := make([]float64, n)
	for i, w := range raw {
		if raw[largest] < w {
			largest = i
		}
		value := w * factor
		if quantum != 0 {
			value = math.Floor(value/quantum+0.5) * quantum
		}
		values[i] = value
		net += value
	}
	values[largest] += 1.0 - net

	changed := false
	for i, value := range values {
		if math.Abs(value-raw[i]) > changeEpsilon {
			changed = true
		}
		v.SetWeight(i, value)
	}
	return changed, nil
}
