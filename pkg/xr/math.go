// Package xr holds the geometry and tracked-pose types shared by the rig.
//
// Conventions follow the game engine the rig drives: Y is up, angles are in
// degrees, and Euler angles apply Z, then X, then Y.
package xr

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the identity rotation.
var Identity = quat.Number{Real: 1}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp interpolates between a and b with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp01(t)
}

// InverseLerp returns where v lies between a and b, clamped to [0, 1].
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// Repeat wraps an angle into [0, 360).
func Repeat(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// DeltaAngle returns the shortest signed difference from a to b, in (-180, 180].
func DeltaAngle(a, b float64) float64 {
	d := Repeat(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}

// LerpAngle interpolates between two angles along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return a + DeltaAngle(a, b)*Clamp01(t)
}

// Horizontal returns v with its vertical component zeroed.
func Horizontal(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}

func axisAngle(deg float64, x, y, z float64) quat.Number {
	half := Radians(deg) / 2
	s := math.Sin(half)
	return quat.Number{Real: math.Cos(half), Imag: x * s, Jmag: y * s, Kmag: z * s}
}

// Euler builds a rotation from Euler angles in degrees. The rotation applies
// z around Z, then x around X, then y around Y.
func Euler(x, y, z float64) quat.Number {
	qx := axisAngle(x, 1, 0, 0)
	qy := axisAngle(y, 0, 1, 0)
	qz := axisAngle(z, 0, 0, 1)
	return quat.Mul(quat.Mul(qy, qx), qz)
}

// Yaw builds a rotation of deg degrees around the vertical axis.
func Yaw(deg float64) quat.Number {
	return axisAngle(deg, 0, 1, 0)
}

// EulerAngles decomposes q into Euler angles in degrees, each in [0, 360).
// It is the inverse of Euler.
func EulerAngles(q quat.Number) r3.Vec {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	m12 := 2 * (y*z - w*x)
	var ex, ey, ez float64
	if m12 < -0.999999 || m12 > 0.999999 {
		// Gimbal lock: fold roll into yaw.
		ex = math.Copysign(math.Pi/2, -m12)
		m00 := 1 - 2*(y*y+z*z)
		m20 := 2 * (x*z - w*y)
		ey = math.Atan2(-m20, m00)
		ez = 0
	} else {
		ex = math.Asin(-m12)
		m02 := 2 * (x*z + w*y)
		m22 := 1 - 2*(x*x+y*y)
		m10 := 2 * (x*y + w*z)
		m11 := 1 - 2*(x*x+z*z)
		ey = math.Atan2(m02, m22)
		ez = math.Atan2(m10, m11)
	}
	return r3.Vec{X: Repeat(Degrees(ex)), Y: Repeat(Degrees(ey)), Z: Repeat(Degrees(ez))}
}

// YawOf returns the Y Euler angle of q in degrees.
func YawOf(q quat.Number) float64 {
	return EulerAngles(q).Y
}

// Normalize returns q scaled to unit length. A zero quaternion becomes Identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Dot returns the four-dimensional dot product of a and b.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Angle returns the angle in degrees between two rotations.
func Angle(a, b quat.Number) float64 {
	d := math.Min(math.Abs(Dot(Normalize(a), Normalize(b))), 1)
	if d > 1-1e-6 {
		return 0
	}
	return Degrees(2 * math.Acos(d))
}

// LerpQuat linearly interpolates between two rotations along the shorter
// path and normalizes the result. t is clamped to [0, 1].
func LerpQuat(a, b quat.Number, t float64) quat.Number {
	t = Clamp01(t)
	if Dot(a, b) < 0 {
		b = quat.Scale(-1, b)
	}
	return Normalize(quat.Add(quat.Scale(1-t, a), quat.Scale(t, b)))
}

// Rotate applies rotation q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(Normalize(q)).Rotate(v)
}
