package warp

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Frame is one independent solve request
type Frame struct {
	ID        string
	Camera    CameraIntrinsics
	Rotations RowRotations
	Zoom      float64
}

// FrameResult pairs a frame ID with its solve outcome
type FrameResult struct {
	ID     string
	Result SolveResult
	Err    error
}

// SolveBatch solves frames on up to workers goroutines. Results are returned
// in input order. Frames not yet started when ctx is done report ctx.Err().
func SolveBatch(ctx context.Context, frames []Frame, cfg SolverConfig, workers int) []FrameResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]FrameResult, len(frames))
	// per-frame errors land in results; the group never short-circuits
	var g errgroup.Group
	g.SetLimit(workers)

	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			results[i] = FrameResult{ID: f.ID, Err: err}
			continue
		}
		g.Go(func() error {
			res, err := Solve(f.Zoom, f.Rotations, f.Camera, cfg)
			results[i] = FrameResult{ID: f.ID, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
