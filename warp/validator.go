package warp

// IsSafe reports whether no sample of the mapped contour lies strictly inside
// the frame. A sample inside means the corrected boundary has pulled into the
// visible area and the output would need pixels from outside the source frame.
//
// Only the sparse samples are tested; the true boundary can bulge inward
// between samples, so this approximates "no black border" rather than
// guaranteeing it.
func IsSafe(contour Contour, cam CameraIntrinsics) bool {
	for _, p := range contour {
		if interior(p, cam) {
			return false
		}
	}
	return true
}

// InteriorPoints returns the indices of samples strictly inside the frame
func InteriorPoints(contour Contour, cam CameraIntrinsics) []int {
	var idx []int
	for i, p := range contour {
		if interior(p, cam) {
			idx = append(idx, i)
		}
	}
	return idx
}

func interior(p Point, cam CameraIntrinsics) bool {
	return 0 < p.X && p.X < cam.MaxX() && 0 < p.Y && p.Y < cam.MaxY()
}
