package warp

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// FrameJob is a JSON solve request for one frame.
// Rotations come either as one row-major matrix per row, or as a constant
// angular velocity integrated over the rolling-shutter readout.
type FrameJob struct {
	ID              string       `json:"id"`
	Camera          string       `json:"camera"`
	Zoom            float64      `json:"zoom"`
	Rotations       [][9]float64 `json:"rotations,omitempty"`
	AngularVelocity *[3]float64  `json:"angularVelocity,omitempty"` // rad/s, motion-sensor axes
	AnchorRow       *float64     `json:"anchorRow,omitempty"`       // row with identity rotation; default is the middle row
}

// ParseJob decodes and checks a frame job. A missing ID is generated and a
// missing zoom defaults to 1.
func ParseJob(data []byte) (*FrameJob, error) {
	var job FrameJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parsing frame job JSON: %w", err)
	}
	if job.Camera == "" {
		return nil, fmt.Errorf("frame job camera is required")
	}
	hasMatrices := len(job.Rotations) > 0
	hasVelocity := job.AngularVelocity != nil
	if hasMatrices == hasVelocity {
		return nil, fmt.Errorf("frame job needs exactly one of rotations or angularVelocity")
	}
	if job.Zoom == 0 {
		job.Zoom = 1
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return &job, nil
}

// ParseJobFile reads a frame job from disk
func ParseJobFile(path string) (*FrameJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame job: %w", err)
	}
	return ParseJob(data)
}

// RowRotations builds the validated per-row rotations for cam
func (j *FrameJob) RowRotations(cam CameraIntrinsics) (RowRotations, error) {
	if j.AngularVelocity != nil {
		w := *j.AngularVelocity
		anchor := cam.MaxY() / 2
		if j.AnchorRow != nil {
			anchor = *j.AnchorRow
		}
		omega := cam.SensorToCamera().MulVec(r3.Vec{X: w[0], Y: w[1], Z: w[2]})
		return RowRotationsFromAngularVelocity(omega, cam.LineDelay, cam.Height, anchor)
	}
	mats := make([]Matrix3, len(j.Rotations))
	for i, m := range j.Rotations {
		mats[i] = Matrix3(m)
	}
	return NewRowRotations(mats, cam.Height)
}

// Frame resolves the job's camera in config and builds a solvable frame
func (j *FrameJob) Frame(config *Config) (Frame, error) {
	cam, ok := config.GetCamera(j.Camera)
	if !ok {
		return Frame{}, fmt.Errorf("unknown camera %q", j.Camera)
	}
	rotations, err := j.RowRotations(cam)
	if err != nil {
		return Frame{}, fmt.Errorf("job %s: %w", j.ID, err)
	}
	return Frame{ID: j.ID, Camera: cam, Rotations: rotations, Zoom: j.Zoom}, nil
}
