package warp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

var (
	// ErrInvalidCamera is returned for calibration records that cannot describe a frame
	ErrInvalidCamera = errors.New("invalid camera intrinsics")
	// ErrInvalidRotations is returned for row rotation sets that do not match the frame
	ErrInvalidRotations = errors.New("invalid row rotations")
	// ErrInvalidSolver is returned for search parameters the solver cannot run with
	ErrInvalidSolver = errors.New("invalid solver parameters")
)

// foldBackLimit is the largest per-axis displacement (normalized units) the
// inverse distortion polynomial may apply before it is treated as folding back.
const foldBackLimit = 1.0

// Validate checks that the record describes a usable frame
func (c CameraIntrinsics) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %q size %dx%d must be positive", ErrInvalidCamera, c.Name, c.Width, c.Height)
	}
	if !(c.Fx > 0) || !(c.Fy > 0) {
		return fmt.Errorf("%w: %q focal length (%g, %g) must be positive", ErrInvalidCamera, c.Name, c.Fx, c.Fy)
	}
	for _, v := range []float64{c.Fx, c.Fy, c.Cx, c.Cy, c.K1, c.K2, c.P1, c.P2, c.IK1, c.IK2, c.IP1, c.IP2, c.LineDelay} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q has non-finite coefficient", ErrInvalidCamera, c.Name)
		}
	}
	if c.LineDelay < 0 {
		return fmt.Errorf("%w: %q line delay %g must not be negative", ErrInvalidCamera, c.Name, c.LineDelay)
	}
	if q := c.SensorRotation; q != nil {
		n := quat.Abs(quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]})
		if !(n > 0) || math.IsInf(n, 0) {
			return fmt.Errorf("%w: %q sensor rotation %v is not a usable quaternion", ErrInvalidCamera, c.Name, *q)
		}
	}
	return nil
}

// SensorToCamera returns the rotation taking motion-sensor axes to camera axes
func (c CameraIntrinsics) SensorToCamera() Matrix3 {
	if c.SensorRotation == nil {
		return IdentityMatrix()
	}
	q := c.SensorRotation
	return QuaternionMatrix(quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]})
}

// MaxX returns the last pixel column as a coordinate
func (c CameraIntrinsics) MaxX() float64 { return float64(c.Width) - 1 }

// MaxY returns the last pixel row as a coordinate
func (c CameraIntrinsics) MaxY() float64 { return float64(c.Height) - 1 }

// Normalize converts a pixel coordinate to normalized image coordinates
func (c CameraIntrinsics) Normalize(p Point) Point {
	return Point{X: (p.X - c.Cx) / c.Fx, Y: (p.Y - c.Cy) / c.Fy}
}

// Denormalize converts normalized coordinates back to pixels, scaled by zoom about the principal point
func (c CameraIntrinsics) Denormalize(x Point, zoom float64) Point {
	return Point{X: x.X*c.Fx*zoom + c.Cx, Y: x.Y*c.Fy*zoom + c.Cy}
}

// Distort applies the forward radial/tangential model (k1, k2, p1, p2) to a normalized point
func (c CameraIntrinsics) Distort(x Point) Point {
	return brownConrady(x, c.K1, c.K2, c.P1, c.P2)
}

// Undistort applies the inverse polynomial (ik1, ik2, ip1, ip2) to a normalized point.
// When the correction exceeds the polynomial's valid domain on either axis the
// point is returned unchanged and folded is true.
func (c CameraIntrinsics) Undistort(x1 Point) (x2 Point, folded bool) {
	x2 = brownConrady(x1, c.IK1, c.IK2, c.IP1, c.IP2)
	dx := math.Abs(x2.X - x1.X)
	dy := math.Abs(x2.Y - x1.Y)
	// NaN comparisons are false, so test the accepted range rather than the rejected one
	if !(dx <= foldBackLimit) || !(dy <= foldBackLimit) {
		return x1, true
	}
	return x2, false
}

// brownConrady evaluates the two-term radial + tangential polynomial
//
//	x' = x(1 + k1 r² + k2 r⁴) + 2 p1 x y + p2 (r² + 2x²)
//	y' = y(1 + k1 r² + k2 r⁴) + p1 (r² + 2y²) + 2 p2 x y
func brownConrady(x Point, k1, k2, p1, p2 float64) Point {
	r2 := x.X*x.X + x.Y*x.Y
	radial := 1 + k1*r2 + k2*r2*r2
	return Point{
		X: x.X*radial + 2*p1*x.X*x.Y + p2*(r2+2*x.X*x.X),
		Y: x.Y*radial + p1*(r2+2*x.Y*x.Y) + 2*p2*x.X*x.Y,
	}
}
