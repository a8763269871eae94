package warp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix3 is a row-major 3x3 matrix
type Matrix3 [9]float64

// IdentityMatrix returns the 3x3 identity (no rotation)
func IdentityMatrix() Matrix3 {
	return Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// AxisAngleMatrix creates a rotation of angle radians about axis (right-hand rule)
func AxisAngleMatrix(axis r3.Vec, angle float64) Matrix3 {
	n := r3.Norm(axis)
	if n == 0 || angle == 0 {
		return IdentityMatrix()
	}
	return QuaternionMatrix(ExpRotation(r3.Scale(angle/n, axis)))
}

// MatrixFromDense copies a 3x3 gonum matrix into a Matrix3
func MatrixFromDense(d mat.Matrix) (Matrix3, error) {
	r, c := d.Dims()
	if r != 3 || c != 3 {
		return Matrix3{}, fmt.Errorf("%w: matrix is %dx%d, want 3x3", ErrInvalidRotations, r, c)
	}
	var m Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i*3+j] = d.At(i, j)
		}
	}
	return m, nil
}

// Dense returns a gonum copy of the matrix
func (m Matrix3) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, m[:])
	return mat.NewDense(3, 3, data)
}

// MulVec returns m·v
func (m Matrix3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// IsRotation reports whether m is orthonormal with determinant +1 within tol
func (m Matrix3) IsRotation(tol float64) bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	d := m.Dense()
	var rtr mat.Dense
	rtr.Mul(d.T(), d)
	if !mat.EqualApprox(&rtr, mat.NewDiagDense(3, []float64{1, 1, 1}), tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}

// Quaternion converts a rotation matrix to a unit quaternion with a
// non-negative real part (Shepperd's method, branching on the largest
// diagonal term for stability).
func (m Matrix3) Quaternion() quat.Number {
	m00, m01, m02 := m[0], m[1], m[2]
	m10, m11, m12 := m[3], m[4], m[5]
	m20, m21, m22 := m[6], m[7], m[8]

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// Log returns the rotation vector (axis scaled by angle) of m
func (m Matrix3) Log() r3.Vec {
	l := quat.Log(m.Quaternion())
	return r3.Vec{X: 2 * l.Imag, Y: 2 * l.Jmag, Z: 2 * l.Kmag}
}

// ExpRotation returns the unit quaternion for rotation vector v
func ExpRotation(v r3.Vec) quat.Number {
	return quat.Exp(quat.Number{Imag: v.X / 2, Jmag: v.Y / 2, Kmag: v.Z / 2})
}

// QuaternionMatrix converts a quaternion to a rotation matrix; q is normalized first
func QuaternionMatrix(q quat.Number) Matrix3 {
	q = quat.Scale(1/quat.Abs(q), q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Matrix3{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}
}

// PartialRotation scales the rotation m by ratio through the log/exp maps,
// so ratio 0 is the identity and ratio 1 is m itself.
func PartialRotation(m Matrix3, ratio float64) r3.Rotation {
	q := ExpRotation(r3.Scale(ratio, m.Log()))
	return r3.Rotation(quat.Scale(1/quat.Abs(q), q))
}
