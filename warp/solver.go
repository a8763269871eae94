package warp

import (
	"fmt"
	"math"
)

// SolverConfig holds the search parameters for Solve
type SolverConfig struct {
	RatioMin      float64        `yaml:"ratioMin" json:"ratioMin"`           // lower end of the search interval
	RatioMax      float64        `yaml:"ratioMax" json:"ratioMax"`           // upper end of the search interval
	MaxIterations int            `yaml:"maxIterations" json:"maxIterations"` // hard bound on bisection steps
	Epsilon       float64        `yaml:"epsilon" json:"epsilon"`             // stop when the interval is this narrow
	Density       int            `yaml:"density" json:"density"`             // samples per edge, corners included
	Policy        SamplingPolicy `yaml:"policy" json:"policy"`               // edge sample spacing
}

// DefaultSolverConfig returns the search parameters used when none are configured
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		RatioMin:      0,
		RatioMax:      1,
		MaxIterations: 50,
		Epsilon:       1e-4,
		Density:       9,
		Policy:        SamplingCosine,
	}
}

// Validate checks the search parameters
func (c SolverConfig) Validate() error {
	for _, v := range []float64{c.RatioMin, c.RatioMax, c.Epsilon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite ratio bound or epsilon", ErrInvalidSolver)
		}
	}
	if c.RatioMin > c.RatioMax {
		return fmt.Errorf("%w: ratioMin %g exceeds ratioMax %g", ErrInvalidSolver, c.RatioMin, c.RatioMax)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("%w: epsilon %g must not be negative", ErrInvalidSolver, c.Epsilon)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: maxIterations %d must not be negative", ErrInvalidSolver, c.MaxIterations)
	}
	if c.Density < 2 {
		return fmt.Errorf("%w: density %d must be at least 2", ErrInvalidSolver, c.Density)
	}
	switch c.Policy {
	case SamplingUniform, SamplingCosine, "":
	default:
		return fmt.Errorf("%w: unknown sampling policy %q", ErrInvalidSolver, c.Policy)
	}
	return nil
}

// Solve finds the largest fraction of the per-row rotations that can be
// corrected at the given zoom without the sampled frame boundary entering the
// visible area.
//
// If the full correction (ratio 1) is already safe it is returned without any
// search. Otherwise the interval [RatioMin, RatioMax] is bisected: when the
// verdict at the lower end differs from the verdict at the midpoint the upper
// end moves down, otherwise the lower end moves up. The last midpoint is
// returned with IterationLimitReached if MaxIterations elapsed before the
// interval shrank to Epsilon.
//
// The last midpoint lands on the unsafe side whenever the final step moved
// the upper end, so Ratio can be up to Epsilon past the boundary. Lower is
// the end whose verdict matches RatioMin; when RatioMin is safe, hand Lower
// to a renderer that must never expose out-of-frame pixels.
//
// The search assumes safety never improves as the ratio grows over the
// interval. Inputs that break this still terminate, but the returned ratio may
// not sit on the true safe/unsafe boundary.
func Solve(zoom float64, rotations RowRotations, cam CameraIntrinsics, cfg SolverConfig) (SolveResult, error) {
	if err := cam.Validate(); err != nil {
		return SolveResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return SolveResult{}, err
	}
	if !(zoom > 0) || math.IsInf(zoom, 0) {
		return SolveResult{}, fmt.Errorf("%w: zoom %g must be positive and finite", ErrInvalidSolver, zoom)
	}
	if rotations.Len() != cam.Height {
		return SolveResult{}, fmt.Errorf("%w: %d rotations for %q with %d rows", ErrInvalidRotations, rotations.Len(), cam.Name, cam.Height)
	}

	points, err := Sample(cfg.Policy, cam.Width, cam.Height, cfg.Density)
	if err != nil {
		return SolveResult{}, fmt.Errorf("%w: %v", ErrInvalidSolver, err)
	}
	evaluate := func(ratio float64) MapResult {
		return MapContour(points, rotations, ratio, zoom, cam)
	}

	full := evaluate(1.0)
	if IsSafe(full.Contour, cam) {
		return SolveResult{
			Ratio:     1.0,
			Zoom:      zoom,
			Status:    Converged,
			Lower:     1.0,
			Upper:     1.0,
			FoldBacks: full.FoldBacks,
			Contour:   full.Contour,
		}, nil
	}

	a, b := cfg.RatioMin, cfg.RatioMax
	m := a
	var atM MapResult
	evaluated := false
	iterations := 0

	// a only ever takes the value of a midpoint that shared its verdict,
	// so the verdict at a is fixed by the first evaluation.
	var safeA bool
	if math.Abs(a-b) > cfg.Epsilon && cfg.MaxIterations > 0 {
		safeA = IsSafe(evaluate(a).Contour, cam)
	}

	for math.Abs(a-b) > cfg.Epsilon && iterations < cfg.MaxIterations {
		iterations++
		m = (a + b) / 2
		atM = evaluate(m)
		evaluated = true
		if safeA != IsSafe(atM.Contour, cam) {
			b = m
		} else {
			a = m
		}
	}
	if !evaluated {
		atM = evaluate(m)
	}

	status := Converged
	if math.Abs(a-b) > cfg.Epsilon {
		status = IterationLimitReached
	}
	return SolveResult{
		Ratio:      m,
		Zoom:       zoom,
		Status:     status,
		Iterations: iterations,
		Lower:      a,
		Upper:      b,
		FoldBacks:  atM.FoldBacks,
		Contour:    atM.Contour,
	}, nil
}
