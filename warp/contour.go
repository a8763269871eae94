package warp

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// SamplingPolicy selects how boundary samples are spaced along each edge
type SamplingPolicy string

const (
	// SamplingUniform spaces samples evenly along each edge
	SamplingUniform SamplingPolicy = "uniform"
	// SamplingCosine concentrates samples near the corners, where distortion is strongest
	SamplingCosine SamplingPolicy = "cosine"
)

// spacingFunc maps sample i of n to a fraction of the edge length in [0, 1]
type spacingFunc func(i, n int) float64

func uniformSpacing(i, n int) float64 {
	return float64(i) / float64(n-1)
}

func cosineSpacing(i, n int) float64 {
	return (1 - math.Cos(float64(i)/float64(n-1)*math.Pi)) / 2
}

// SampleUniform returns 4n-4 evenly spaced samples on the frame perimeter
func SampleUniform(width, height, n int) (Contour, error) {
	return sampleContour(width, height, n, uniformSpacing)
}

// SampleCosine returns 4n-4 perimeter samples packed toward the corners
func SampleCosine(width, height, n int) (Contour, error) {
	return sampleContour(width, height, n, cosineSpacing)
}

// Sample dispatches on policy; an empty policy means cosine
func Sample(policy SamplingPolicy, width, height, n int) (Contour, error) {
	switch policy {
	case SamplingUniform:
		return SampleUniform(width, height, n)
	case SamplingCosine, "":
		return SampleCosine(width, height, n)
	default:
		return nil, fmt.Errorf("unknown sampling policy %q", policy)
	}
}

func sampleContour(width, height, n int, spacing spacingFunc) (Contour, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame size %dx%d must be positive", width, height)
	}
	if n < 2 {
		return nil, fmt.Errorf("contour density %d must be at least 2", n)
	}

	uMax := float64(width) - 1
	vMax := float64(height) - 1
	contour := make(Contour, 0, 4*n-4)

	// Top
	for i := 0; i < n; i++ {
		contour = append(contour, Point{X: spacing(i, n) * uMax, Y: 0})
	}
	// Bottom
	for i := 0; i < n; i++ {
		contour = append(contour, Point{X: spacing(i, n) * uMax, Y: vMax})
	}
	// Left, corners already emitted by top/bottom
	for i := 1; i < n-1; i++ {
		contour = append(contour, Point{X: 0, Y: spacing(i, n) * vMax})
	}
	// Right
	for i := 1; i < n-1; i++ {
		contour = append(contour, Point{X: uMax, Y: spacing(i, n) * vMax})
	}
	return contour, nil
}

// MultiPoint converts the contour to an orb point set
func (c Contour) MultiPoint() orb.MultiPoint {
	mp := make(orb.MultiPoint, len(c))
	for i, p := range c {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// Bound returns the axis-aligned extent of the contour
func (c Contour) Bound() orb.Bound {
	return c.MultiPoint().Bound()
}

// Outline reorders the samples into a closed walk around the perimeter
// (top left→right, right top→bottom, bottom right→left, left bottom→top),
// suitable for drawing. It assumes the sampler's edge layout for density n.
func (c Contour) Outline(n int) orb.Ring {
	if n < 2 || len(c) != 4*n-4 {
		return orb.Ring(c.MultiPoint())
	}
	top := c[:n]
	bottom := c[n : 2*n]
	left := c[2*n : 3*n-2]
	right := c[3*n-2:]

	ring := make(orb.Ring, 0, len(c)+1)
	for _, p := range top {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	for _, p := range right {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	for i := len(bottom) - 1; i >= 0; i-- {
		ring = append(ring, orb.Point{bottom[i].X, bottom[i].Y})
	}
	for i := len(left) - 1; i >= 0; i-- {
		ring = append(ring, orb.Point{left[i].X, left[i].Y})
	}
	return append(ring, ring[0])
}
