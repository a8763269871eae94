package warp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// rotationTolerance bounds |RᵀR - I| and |det R - 1| for accepted row rotations.
// Estimators commonly integrate in float32, so this is looser than float64 epsilon.
const rotationTolerance = 1e-4

// RowRotations is a read-only view of one camera orientation per output row.
// It is validated once at construction; lookups never fail.
type RowRotations struct {
	rows []Matrix3
}

// NewRowRotations validates one rotation per row for a frame of the given height
func NewRowRotations(mats []Matrix3, height int) (RowRotations, error) {
	if height <= 0 {
		return RowRotations{}, fmt.Errorf("%w: height %d must be positive", ErrInvalidRotations, height)
	}
	if len(mats) != height {
		return RowRotations{}, fmt.Errorf("%w: got %d rotations for %d rows", ErrInvalidRotations, len(mats), height)
	}
	for i, m := range mats {
		if !m.IsRotation(rotationTolerance) {
			return RowRotations{}, fmt.Errorf("%w: row %d is not an orthonormal rotation", ErrInvalidRotations, i)
		}
	}
	return RowRotations{rows: mats}, nil
}

// NewRowRotationsFromFlat reads height row-major 3x3 matrices from a flat buffer
func NewRowRotationsFromFlat(buf []float64, height int) (RowRotations, error) {
	if len(buf) != 9*height {
		return RowRotations{}, fmt.Errorf("%w: buffer holds %d values, want %d for %d rows", ErrInvalidRotations, len(buf), 9*height, height)
	}
	mats := make([]Matrix3, height)
	for i := range mats {
		copy(mats[i][:], buf[i*9:(i+1)*9])
	}
	return NewRowRotations(mats, height)
}

// UniformRowRotations uses the same rotation for every row (global shutter)
func UniformRowRotations(m Matrix3, height int) (RowRotations, error) {
	mats := make([]Matrix3, height)
	for i := range mats {
		mats[i] = m
	}
	return NewRowRotations(mats, height)
}

// RowRotationsFromAngularVelocity integrates a constant angular velocity
// (rad/s, camera frame) across the rolling-shutter readout. Row r is exposed
// (r - anchorRow) * lineDelay seconds after the anchor row, which gets the identity.
func RowRotationsFromAngularVelocity(omega r3.Vec, lineDelay float64, height int, anchorRow float64) (RowRotations, error) {
	if math.IsNaN(lineDelay) || lineDelay < 0 {
		return RowRotations{}, fmt.Errorf("%w: line delay %g must not be negative", ErrInvalidRotations, lineDelay)
	}
	if height <= 0 {
		return RowRotations{}, fmt.Errorf("%w: height %d must be positive", ErrInvalidRotations, height)
	}
	mats := make([]Matrix3, height)
	for r := range mats {
		dt := (float64(r) - anchorRow) * lineDelay
		mats[r] = QuaternionMatrix(ExpRotation(r3.Scale(dt, omega)))
	}
	return NewRowRotations(mats, height)
}

// Len returns the number of rows covered
func (rr RowRotations) Len() int {
	return len(rr.rows)
}

// At returns the rotation for row, clamped to the first and last row.
// Clamping is the intended behavior at the frame edges, where rounded sample
// coordinates can land one row outside the sensor.
func (rr RowRotations) At(row int) Matrix3 {
	return rr.rows[clampRow(row, len(rr.rows))]
}

// clampRow limits row to [0, rows-1]
func clampRow(row, rows int) int {
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}
