package math3d

import "math"

// Quat is a quaternion W + Xi + Yj + Zk. Rotation helpers assume unit norm.
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat returns the rotation that leaves every vector unchanged.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// AxisAngle returns the rotation of theta radians about axis.
// axis must already be unit length.
func AxisAngle(axis Vec3, theta float64) Quat {
	s, c := math.Sincos(theta / 2)
	return Quat{
		W: c,
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// Mul returns the Hamilton product a * b. Applying the result to a vector
// rotates by b first, then by a.
//
//nolint:st1016 // a*b naming convention is clearer for quaternion products
func (a Quat) Mul(b Quat) Quat {
	return Quat{
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y + a.Y*b.W + a.Z*b.X - a.X*b.Z,
		Z: a.W*b.Z + a.Z*b.W + a.X*b.Y - a.Y*b.X,
	}
}

// Conjugate negates the vector part. For unit quaternions this is the inverse.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Len returns the quaternion norm.
func (q Quat) Len() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Rotate returns v rotated by q, the vector part of q * (0, v) * conj(q).
func (q Quat) Rotate(v Vec3) Vec3 {
	p := q.Mul(Quat{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Conjugate())
	return Vec3{p.X, p.Y, p.Z}
}
