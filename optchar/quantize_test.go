package optchar

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/optchar/character"
)

func weightedVertex(t *testing.T, weights ...float64) (*character.Vertex, []*character.Joint) {
	ch := character.New("q")
	ch.AddModel("model", nil)
	v := ch.NewVertex(0)
	joints := make([]*character.Joint, len(weights))
	for i, w := range weights {
		j, err := ch.NewJoint(string(rune('a'+i)), nil)
		require.NoError(t, err)
		joints[i] = j
		v.AddInfluence(j, w)
	}
	return v, joints
}

func weightsOf(v *character.Vertex) []float64 {
	out := make([]float64, v.NumInfluences())
	for i := range out {
		out[i] = v.Influence(i).Weight
	}
	return out
}

func sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func TestQuantizeVertex(t *testing.T) {
	for _, test := range []struct {
		name    string
		weights []float64
		quantum float64
		expect  []float64
	}{
		{"already normalized", []float64{0.5, 0.3, 0.2}, 0.1, []float64{0.5, 0.3, 0.2}},
		{"two equal", []float64{1, 1}, 0.01, []float64{0.5, 0.5}},
		{"normalize only", []float64{2, 6}, 0, []float64{0.25, 0.75}},
		{"roundoff goes to largest", []float64{1, 3, 1}, 0.1, []float64{0.2, 0.6, 0.2}},
		{"tie goes to first", []float64{0.35, 0.35, 0.3}, 0.5, []float64{0, 0.5, 0.5}},
		{"single", []float64{0.2}, 0.25, []float64{1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			v, _ := weightedVertex(t, test.weights...)
			_, err := QuantizeVertex(v, test.quantum)
			require.NoError(t, err)

			got := weightsOf(v)
			require.Len(t, got, len(test.expect))
			for i := range got {
				assert.InDelta(t, test.expect[i], got[i], 1e-9, "influence %d", i)
			}
			assert.InDelta(t, 1.0, sum(got), 1e-12)
		})
	}
}

func TestQuantizeVertexMultiplesOfQuantum(t *testing.T) {
	v, _ := weightedVertex(t, 0.17, 0.41, 0.09, 0.33)
	_, err := QuantizeVertex(v, 0.05)
	require.NoError(t, err)

	got := weightsOf(v)
	largest := 1
	for i, w := range got {
		if i == largest {
			continue
		}
		steps := w / 0.05
		assert.InDelta(t, math.Round(steps), steps, 1e-9, "influence %d", i)
		assert.GreaterOrEqual(t, w, 0.0)
	}
	assert.InDelta(t, 1.0, sum(got), 1e-12)
}

func TestQuantizeVertexKeepsOrder(t *testing.T) {
	v, joints := weightedVertex(t, 3, 1, 2)
	_, err := QuantizeVertex(v, 0)
	require.NoError(t, err)
	for i, j := range joints {
		assert.Same(t, j, v.Influence(i).Joint)
	}
}

func TestQuantizeVertexIsIdempotent(t *testing.T) {
	v, _ := weightedVertex(t, 0.123, 0.456, 0.789)
	_, err := QuantizeVertex(v, 0.01)
	require.NoError(t, err)
	first := weightsOf(v)

	_, err = QuantizeVertex(v, 0.01)
	require.NoError(t, err)
	second := weightsOf(v)
	for i := range first {
		assert.InDelta(t, first[i], second[i], 1e-12)
	}
}

func TestRequantizeReportsNoChange(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	ch := character.New("q")
	ch.AddModel("rest", []float64{0})
	var joints []*character.Joint
	for i := 0; i < 4; i++ {
		j, err := ch.NewJoint(fmt.Sprintf("j%d", i), nil)
		require.NoError(t, err)
		joints = append(joints, j)
	}
	for i := 0; i < 2000; i++ {
		v := ch.NewVertex(0)
		for _, j := range joints[:1+rnd.Intn(len(joints))] {
			v.AddInfluence(j, rnd.Float64()+0.01)
		}
	}

	first, err := Quantize(ch, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 2000, first.Vertices)
	assert.NotZero(t, first.Changed)

	second, err := Quantize(ch, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 2000, second.Vertices)
	assert.Zero(t, second.Changed)
}

func TestQuantizeVertexZeroSum(t *testing.T) {
	v, _ := weightedVertex(t, 0.5, -0.5)
	_, err := QuantizeVertex(v, 0.1)
	assert.ErrorIs(t, err, ErrZeroMembership)

	ch := v.Influence(0).Joint.Character()
	_, err = Quantize(ch, 0.1)
	assert.ErrorIs(t, err, ErrZeroMembership)
	assert.Contains(t, err.Error(), "q: vertex 0")
}

func TestQuantizeSkipsUnweightedVertices(t *testing.T) {
	ch := character.New("q")
	ch.AddModel("model", nil)
	ch.NewVertex(0)
	j, err := ch.NewJoint("a", nil)
	require.NoError(t, err)
	ch.NewVertex(0).AddInfluence(j, 4)

	res, err := Quantize(ch, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Vertices)
	assert.Equal(t, 1, res.Changed)
}
