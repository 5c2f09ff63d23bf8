package gltfchar

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/optchar/utils"
	"github.com/mogaika/optchar/utils/gltfutils"
)

// track is one sampled translation, rotation or scale channel. Vec3 values
// leave the last component unused.
type track struct {
	times  []float32
	values [][4]float32
	interp gltf.Interpolation
	path   gltf.TRSProperty
}

// weightTrack is a morph weights channel with width values per key.
type weightTrack struct {
	times  []float32
	values []float32
	width  int
	interp gltf.Interpolation
}

// layer is one animation of the document resampled on the union of its key
// times.
type layer struct {
	anim    int
	name    string
	times   []float32
	tracks  map[int]map[gltf.TRSProperty]*track
	weights map[int]*weightTrack
}

func (l *layer) animates(node int) bool {
	return len(l.tracks[node]) != 0
}

func readFloats(doc *gltf.Document, idx *uint32) ([]float32, error) {
	if idx == nil || int(*idx) >= len(doc.Accessors) {
		return nil, errors.New("Missing accessor")
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[*idx], nil)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([]float32)
	if !ok {
		return nil, errors.Errorf("Expected float scalars, got %T", data)
	}
	return floats, nil
}

func readVectors(doc *gltf.Document, idx *uint32) ([][4]float32, error) {
	if idx == nil || int(*idx) >= len(doc.Accessors) {
		return nil, errors.New("Missing accessor")
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[*idx], nil)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][3]float32:
		out := make([][4]float32, len(v))
		for i := range v {
			out[i] = [4]float32{v[i][0], v[i][1], v[i][2], 0}
		}
		return out, nil
	case [][4]float32:
		return v, nil
	}
	return nil, errors.Errorf("Unsupported animation output %T", data)
}

func loadLayer(doc *gltf.Document, ai int) (*layer, error) {
	anim := doc.Animations[ai]
	l := &layer{
		anim:    ai,
		name:    anim.Name,
		tracks:  make(map[int]map[gltf.TRSProperty]*track),
		weights: make(map[int]*weightTrack),
	}

	keys := make(map[float32]struct{})
	for ci, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil || int(*ch.Sampler) >= len(anim.Samplers) {
			continue
		}
		sampler := anim.Samplers[*ch.Sampler]
		node := int(*ch.Target.Node)

		times, err := readFloats(doc, sampler.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "Animation %d channel %d input", ai, ci)
		}
		if len(times) == 0 {
			continue
		}
		for _, t := range times {
			keys[t] = struct{}{}
		}

		if ch.Target.Path == gltf.TRSWeights {
			values, err := readFloats(doc, sampler.Output)
			if err != nil {
				return nil, errors.Wrapf(err, "Animation %d channel %d output", ai, ci)
			}
			width := len(values) / len(times)
			if sampler.Interpolation == gltf.InterpolationCubicSpline {
				width /= 3
			}
			l.weights[node] = &weightTrack{
				times: times, values: values, width: width, interp: sampler.Interpolation,
			}
			continue
		}

		values, err := readVectors(doc, sampler.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "Animation %d channel %d output", ai, ci)
		}
		if l.tracks[node] == nil {
			l.tracks[node] = make(map[gltf.TRSProperty]*track)
		}
		l.tracks[node][ch.Target.Path] = &track{
			times: times, values: values, interp: sampler.Interpolation, path: ch.Target.Path,
		}
	}

	l.times = make([]float32, 0, len(keys))
	for t := range keys {
		l.times = append(l.times, t)
	}
	sort.Slice(l.times, func(i, j int) bool { return l.times[i] < l.times[j] })
	return l, nil
}

// span finds the keys around time and the blend factor between them.
func span(times []float32, time float32) (int, int, float64) {
	n := len(times)
	if time <= times[0] {
		return 0, 0, 0
	}
	if time >= times[n-1] {
		return n - 1, n - 1, 0
	}
	b := sort.Search(n, func(k int) bool { return times[k] > time })
	a := b - 1
	return a, b, float64(time-times[a]) / float64(times[b]-times[a])
}

func (t *track) keyed(i int) [4]float32 {
	if t.interp == gltf.InterpolationCubicSpline {
		return t.values[i*3+1]
	}
	return t.values[i]
}

func (t *track) sample(time float32) [4]float32 {
	a, b, u := span(t.times, time)
	va, vb := t.keyed(a), t.keyed(b)
	if a == b || t.interp == gltf.InterpolationStep {
		return va
	}
	if t.path == gltf.TRSRotation {
		q := mgl64.QuatSlerp(utils.QuatFromXYZW(va), utils.QuatFromXYZW(vb), u)
		return utils.QuatToXYZW(q)
	}
	var out [4]float32
	for i := range out {
		out[i] = float32(float64(va[i]) + (float64(vb[i])-float64(va[i]))*u)
	}
	return out
}

func (w *weightTrack) keyed(i, target int) float32 {
	if w.interp == gltf.InterpolationCubicSpline {
		return w.values[(i*3+1)*w.width+target]
	}
	return w.values[i*w.width+target]
}

func (w *weightTrack) sample(time float32, target int) float64 {
	a, b, u := span(w.times, time)
	va, vb := float64(w.keyed(a, target)), float64(w.keyed(b, target))
	if a == b || w.interp == gltf.InterpolationStep {
		return va
	}
	return va + (vb-va)*u
}

// localAt is the transform of node at time, with unanimated properties taken
// from the node itself.
func (l *layer) localAt(doc *gltf.Document, node int, time float32) mgl64.Mat4 {
	n := doc.Nodes[node]
	tracks := l.tracks[node]
	if len(tracks) == 0 {
		return gltfutils.LocalMatrix(n)
	}

	tr := utils.Vec3From32(n.TranslationOrDefault())
	rot := utils.QuatFromXYZW(n.RotationOrDefault())
	scale := utils.Vec3From32(n.ScaleOrDefault())
	if t, ok := tracks[gltf.TRSTranslation]; ok {
		v := t.sample(time)
		tr = utils.Vec3From32([3]float32{v[0], v[1], v[2]})
	}
	if t, ok := tracks[gltf.TRSRotation]; ok {
		rot = utils.QuatFromXYZW(t.sample(time))
	}
	if t, ok := tracks[gltf.TRSScale]; ok {
		v := t.sample(time)
		scale = utils.Vec3From32([3]float32{v[0], v[1], v[2]})
	}
	return utils.TRS(tr, rot, scale)
}

// writeTRS replaces the translation, rotation and scale channels of node in
// animation ai with linear keys for frames at times.
func writeTRS(doc *gltf.Document, ai, node int, times []float32, frames []mgl64.Mat4) {
	anim := doc.Animations[ai]
	removeChannels(anim, node, gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale)

	translations := make([][3]float32, len(frames))
	rotations := make([][4]float32, len(frames))
	scales := make([][3]float32, len(frames))
	for i, m := range frames {
		t, r, s := utils.DecomposeTRS(m)
		translations[i] = utils.Vec3To32(t)
		rotations[i] = utils.QuatToXYZW(r)
		scales[i] = utils.Vec3To32(s)
	}
	// a table shorter than the layer holds its last frame
	input := times
	if len(frames) < len(times) {
		input = times[:len(frames)]
	}
	in := modeler.WriteAccessor(doc, gltf.TargetNone, input)
	addChannel(doc, anim, node, gltf.TRSTranslation, in, modeler.WriteAccessor(doc, gltf.TargetNone, translations))
	addChannel(doc, anim, node, gltf.TRSRotation, in, modeler.WriteAccessor(doc, gltf.TargetNone, rotations))
	addChannel(doc, anim, node, gltf.TRSScale, in, modeler.WriteAccessor(doc, gltf.TargetNone, scales))
}

func addChannel(doc *gltf.Document, anim *gltf.Animation, node int, path gltf.TRSProperty, input, output uint32) {
	anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(input),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	anim.Channels = append(anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
		Target:  gltf.ChannelTarget{Node: gltf.Index(uint32(node)), Path: path},
	})
}

func removeChannels(anim *gltf.Animation, node int, paths ...gltf.TRSProperty) {
	out := anim.Channels[:0]
	for _, ch := range anim.Channels {
		drop := false
		if ch.Target.Node != nil && int(*ch.Target.Node) == node {
			for _, p := range paths {
				if ch.Target.Path == p {
					drop = true
				}
			}
		}
		if !drop {
			out = append(out, ch)
		}
	}
	anim.Channels = out
}
