package warp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func mustUniform(t *testing.T, m Matrix3, height int) RowRotations {
	t.Helper()
	rr, err := UniformRowRotations(m, height)
	if err != nil {
		t.Fatalf("UniformRowRotations: %v", err)
	}
	return rr
}

func TestMapContour_IdentityIsNoOp(t *testing.T) {
	cam := pinhole()
	points, err := SampleCosine(cam.Width, cam.Height, 9)
	if err != nil {
		t.Fatalf("SampleCosine: %v", err)
	}
	rr := mustUniform(t, IdentityMatrix(), cam.Height)

	for _, ratio := range []float64{0, 0.5, 1} {
		got := MapContour(points, rr, ratio, 1, cam)
		if diff := cmp.Diff(points, got.Contour, approx); diff != "" {
			t.Errorf("ratio %v: mapped contour mismatch (-want +got):\n%s", ratio, diff)
		}
		if got.FoldBacks != 0 {
			t.Errorf("ratio %v: FoldBacks = %d, want 0", ratio, got.FoldBacks)
		}
	}
}

func TestMapContour_RatioZeroIgnoresRotation(t *testing.T) {
	cam := pinhole()
	points, _ := SampleUniform(cam.Width, cam.Height, 5)
	rr := mustUniform(t, AxisAngleMatrix(r3.Vec{X: 1, Z: 1}, 0.3), cam.Height)

	got := MapContour(points, rr, 0, 1, cam)
	if diff := cmp.Diff(points, got.Contour, approx); diff != "" {
		t.Errorf("mapped contour mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContour_ZoomScalesAboutPrincipalPoint(t *testing.T) {
	cam := pinhole()
	points := Contour{{0, 0}, {639, 479}, {cam.Cx, cam.Cy}}
	rr := mustUniform(t, IdentityMatrix(), cam.Height)

	got := MapContour(points, rr, 1, 2, cam)
	want := Contour{
		{cam.Cx - 2*cam.Cx, cam.Cy - 2*cam.Cy},
		{cam.Cx + 2*(639-cam.Cx), cam.Cy + 2*(479-cam.Cy)},
		{cam.Cx, cam.Cy},
	}
	if diff := cmp.Diff(want, got.Contour, approx); diff != "" {
		t.Errorf("mapped contour mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContour_PanShiftsHorizontally(t *testing.T) {
	cam := pinhole()
	angle := 0.1
	rr := mustUniform(t, AxisAngleMatrix(r3.Vec{Y: 1}, angle), cam.Height)

	// principal point ray rotated about Y by angle lands at fx·tan(angle)
	got := MapContour(Contour{{cam.Cx, cam.Cy}}, rr, 1, 1, cam)
	want := Contour{{cam.Cx + cam.Fx*0.10033467208545055, cam.Cy}}
	if diff := cmp.Diff(want, got.Contour, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("mapped contour mismatch (-want +got):\n%s", diff)
	}
}

func TestMapContour_FoldBacksUseUndistortedPoint(t *testing.T) {
	plain := pinhole()
	folding := pinhole()
	folding.IK1 = 50

	points, _ := SampleCosine(plain.Width, plain.Height, 9)
	rr := mustUniform(t, AxisAngleMatrix(r3.Vec{X: 0.2, Y: 1}, 0.05), plain.Height)

	want := MapContour(points, rr, 0.7, 1.1, plain)
	got := MapContour(points, rr, 0.7, 1.1, folding)

	if got.FoldBacks != len(points) {
		t.Errorf("FoldBacks = %d, want %d", got.FoldBacks, len(points))
	}
	if diff := cmp.Diff(want.Contour, got.Contour, approx); diff != "" {
		t.Errorf("folded contour should match the undistorted mapping (-want +got):\n%s", diff)
	}
}

func TestMapContour_RowSelectionAndClamp(t *testing.T) {
	cam := CameraIntrinsics{Name: "tiny", Width: 4, Height: 3, Fx: 2, Fy: 2, Cx: 1.5, Cy: 1}
	tilt := AxisAngleMatrix(r3.Vec{Y: 1}, 0.2)
	rr, err := NewRowRotations([]Matrix3{IdentityMatrix(), IdentityMatrix(), tilt}, cam.Height)
	if err != nil {
		t.Fatalf("NewRowRotations: %v", err)
	}

	points := Contour{
		{X: 1, Y: 0},    // row 0
		{X: 1, Y: -0.4}, // rounds to row 0
		{X: 1, Y: 1.4},  // rounds to row 1
		{X: 1, Y: 1.6},  // rounds to row 2
		{X: 1, Y: 9},    // clamps to row 2
		{X: 2, Y: -3},   // clamps to row 0
		{X: 2, Y: 2.6},  // rounds to row 3, clamps to row 2
	}
	got := MapContour(points, rr, 1, 1, cam)

	for _, i := range []int{0, 1, 2, 5} {
		if !pointsEqual(got.Contour[i], points[i]) {
			t.Errorf("point %d on an identity row moved: %v -> %v", i, points[i], got.Contour[i])
		}
	}
	for _, i := range []int{3, 4, 6} {
		if pointsEqual(got.Contour[i], points[i]) {
			t.Errorf("point %d on the tilted row did not move", i)
		}
	}
}
