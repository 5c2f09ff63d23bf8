package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AlmostEqual compares with an absolute threshold.
func AlmostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}

// Mat4AlmostEqual compares element wise with an absolute threshold, unlike
// mgl64's relative ApproxEqualThreshold.
func Mat4AlmostEqual(a, b mgl64.Mat4, threshold float64) bool {
	for i := range a {
		if !AlmostEqual(a[i], b[i], threshold) {
			return false
		}
	}
	return true
}

// TRS composes translation * rotation * scale.
func TRS(t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(r.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// DecomposeTRS splits an affine matrix without shear into translation,
// rotation and scale. A mirrored basis is folded into a negative x scale.
func DecomposeTRS(m mgl64.Mat4) (t mgl64.Vec3, r mgl64.Quat, s mgl64.Vec3) {
	t = m.Col(3).Vec3()

	x := m.Col(0).Vec3()
	y := m.Col(1).Vec3()
	z := m.Col(2).Vec3()
	s = mgl64.Vec3{x.Len(), y.Len(), z.Len()}
	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}

	var rot mgl64.Mat4
	for i, axis := range [3]mgl64.Vec3{x, y, z} {
		if s[i] != 0 {
			axis = axis.Mul(1 / s[i])
		}
		rot.SetCol(i, axis.Vec4(0))
	}
	rot.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	r = mgl64.Mat4ToQuat(rot).Normalize()
	return t, r, s
}

// QuatFromXYZW converts the glTF [x, y, z, w] rotation layout.
func QuatFromXYZW(q [4]float32) mgl64.Quat {
	return mgl64.Quat{W: float64(q[3]), V: mgl64.Vec3{float64(q[0]), float64(q[1]), float64(q[2])}}
}

func QuatToXYZW(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)}
}

func Vec3From32(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func Vec3To32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// Mat4From32 converts a column-major float32 matrix.
func Mat4From32(m [16]float32) mgl64.Mat4 {
	var r mgl64.Mat4
	for i, v := range m {
		r[i] = float64(v)
	}
	return r
}

func FloatArray32to64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
