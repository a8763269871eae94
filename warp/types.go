package warp

import (
	"encoding/json"
	"fmt"
)

// Point represents a 2D coordinate in pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contour is an ordered set of frame boundary samples.
// Order is top edge, bottom edge, left edge (no corners), right edge (no corners).
type Contour []Point

// CameraIntrinsics is the calibration record for one camera + lens pair.
// Forward coefficients (K1..P2) distort an ideal ray into sensor space; the
// inverse coefficients (IK1..IP2) are a polynomial approximation of the
// functional inverse and are only trusted inside the sensor field of view.
type CameraIntrinsics struct {
	Name      string  `yaml:"name" json:"name"`
	Lens      string  `yaml:"lens,omitempty" json:"lens,omitempty"`
	Width     int     `yaml:"width" json:"width"`
	Height    int     `yaml:"height" json:"height"`
	Fx        float64 `yaml:"fx" json:"fx"`
	Fy        float64 `yaml:"fy" json:"fy"`
	Cx        float64 `yaml:"cx" json:"cx"`
	Cy        float64 `yaml:"cy" json:"cy"`
	K1        float64 `yaml:"k1" json:"k1"`
	K2        float64 `yaml:"k2" json:"k2"`
	P1        float64 `yaml:"p1" json:"p1"`
	P2        float64 `yaml:"p2" json:"p2"`
	IK1       float64 `yaml:"ik1" json:"ik1"`
	IK2       float64 `yaml:"ik2" json:"ik2"`
	IP1       float64 `yaml:"ip1" json:"ip1"`
	IP2       float64 `yaml:"ip2" json:"ip2"`
	LineDelay float64 `yaml:"lineDelay" json:"lineDelay"` // seconds between successive row exposures

	// SensorRotation is the gyro-to-camera quaternion [w, x, y, z] for rigs
	// whose motion sensor is mounted rotated against the lens; nil means aligned.
	SensorRotation *[4]float64 `yaml:"sensorRotation,omitempty" json:"sensorRotation,omitempty"`
}

// SolveStatus reports how a bisection search ended
type SolveStatus int

const (
	// Converged means the search interval shrank below epsilon (or no search was needed)
	Converged SolveStatus = iota
	// IterationLimitReached means MaxIterations elapsed first; the ratio is a best-effort estimate
	IterationLimitReached
)

func (s SolveStatus) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationLimitReached:
		return "iteration_limit_reached"
	default:
		return fmt.Sprintf("SolveStatus(%d)", int(s))
	}
}

// MarshalJSON encodes the status as its string name
func (s SolveStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the string names produced by MarshalJSON
func (s *SolveStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "converged":
		*s = Converged
	case "iteration_limit_reached":
		*s = IterationLimitReached
	default:
		return fmt.Errorf("unknown solve status %q", name)
	}
	return nil
}

// MapResult is the output of one mapping pass
type MapResult struct {
	Contour   Contour `json:"contour"`
	FoldBacks int     `json:"foldBacks"` // points whose inverse distortion left its valid domain
}

// SolveResult contains the result of a ratio search
type SolveResult struct {
	Ratio      float64     `json:"ratio"`      // last bisection midpoint, or 1.0 for the full-correction shortcut
	Zoom       float64     `json:"zoom"`       // zoom the search was run at
	Status     SolveStatus `json:"status"`     // Converged or IterationLimitReached
	Iterations int         `json:"iterations"` // bisection steps performed
	Lower      float64     `json:"lower"`      // final bracket lower bound
	Upper      float64     `json:"upper"`      // final bracket upper bound
	FoldBacks  int         `json:"foldBacks"`  // fold-backs seen while mapping at Ratio
	Contour    Contour     `json:"contour"`    // mapped contour at Ratio
}

// Safe reports whether the result's contour passes the validator for cam
func (r SolveResult) Safe(cam CameraIntrinsics) bool {
	return IsSafe(r.Contour, cam)
}
