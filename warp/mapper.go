package warp

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MapContour predicts where each boundary sample lands once ratio of its
// row's rotation is corrected and the result is scaled by zoom.
//
// Each point is normalized, passed through the inverse distortion polynomial
// (points where the polynomial folds back keep their undistorted value and are
// counted in FoldBacks), rotated by the partial rotation of row round(p.Y),
// reprojected and zoomed about the principal point. Output order matches
// input order.
//
// rotations must cover cam.Height rows; Solve checks this before calling.
func MapContour(points Contour, rotations RowRotations, ratio, zoom float64, cam CameraIntrinsics) MapResult {
	result := MapResult{Contour: make(Contour, len(points))}

	// Rows repeat along the top and bottom edges; build each partial rotation once.
	partials := make(map[int]r3.Rotation)

	for i, p := range points {
		x1 := cam.Normalize(p)
		x2, folded := cam.Undistort(x1)
		if folded {
			result.FoldBacks++
		}

		row := clampRow(int(math.Round(p.Y)), rotations.Len())
		rot, ok := partials[row]
		if !ok {
			rot = PartialRotation(rotations.At(row), ratio)
			partials[row] = rot
		}

		xyz := rot.Rotate(r3.Vec{X: x2.X, Y: x2.Y, Z: 1})
		result.Contour[i] = cam.Denormalize(Point{X: xyz.X / xyz.Z, Y: xyz.Y / xyz.Z}, zoom)
	}
	return result
}
