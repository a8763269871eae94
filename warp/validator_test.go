package warp

import (
	"math"
	"reflect"
	"testing"
)

func TestIsSafe(t *testing.T) {
	cam := CameraIntrinsics{Width: 100, Height: 50, Fx: 1, Fy: 1}

	tests := []struct {
		name    string
		contour Contour
		want    bool
	}{
		{name: "empty", contour: nil, want: true},
		{name: "exactly on frame edges", contour: Contour{{0, 0}, {99, 49}, {0, 25}, {50, 49}}, want: true},
		{name: "outside", contour: Contour{{-5, -5}, {150, 20}, {40, 80}}, want: true},
		{name: "one interior point", contour: Contour{{-5, -5}, {50, 25}}, want: false},
		{name: "just inside corner", contour: Contour{{0.001, 0.001}}, want: false},
		{name: "inside x but on top edge", contour: Contour{{50, 0}}, want: true},
		{name: "NaN", contour: Contour{{math.NaN(), 25}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSafe(tt.contour, cam); got != tt.want {
				t.Errorf("IsSafe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInteriorPoints(t *testing.T) {
	cam := CameraIntrinsics{Width: 100, Height: 50, Fx: 1, Fy: 1}
	contour := Contour{{-1, 0}, {10, 10}, {99, 49}, {98.9, 48.9}}

	got := InteriorPoints(contour, cam)
	want := []int{1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InteriorPoints() = %v, want %v", got, want)
	}

	if got := InteriorPoints(Contour{{-1, -1}}, cam); got != nil {
		t.Errorf("InteriorPoints() = %v, want nil", got)
	}
}

func TestSolveResult_Safe(t *testing.T) {
	cam := CameraIntrinsics{Width: 10, Height: 10, Fx: 1, Fy: 1}
	if !(SolveResult{Contour: Contour{{-1, -1}}}).Safe(cam) {
		t.Error("result outside the frame should be safe")
	}
	if (SolveResult{Contour: Contour{{5, 5}}}).Safe(cam) {
		t.Error("result inside the frame should not be safe")
	}
}
