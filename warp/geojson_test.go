package warp

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContourGeoJSON_Converged(t *testing.T) {
	cam, rr, _ := panScene(t)
	cfg := DefaultSolverConfig()
	res, err := Solve(1.2, rr, cam, cfg)
	require.NoError(t, err)

	data, err := ContourGeoJSON(cam, res, cfg.Density)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	roles := make(map[string]*geojson.Feature)
	for _, f := range fc.Features {
		roles[f.Properties.MustString("role")] = f
	}

	frame := roles[RoleFrame]
	require.NotNil(t, frame)
	poly, ok := frame.Geometry.(orb.Polygon)
	require.True(t, ok, "frame geometry should be a polygon, got %T", frame.Geometry)
	assert.Equal(t, orb.Point{639, 479}, poly[0][2])
	assert.Equal(t, "pinhole", frame.Properties.MustString("camera"))

	mapped := roles[RoleMapped]
	require.NotNil(t, mapped)
	line, ok := mapped.Geometry.(orb.LineString)
	require.True(t, ok, "mapped geometry should be a line string, got %T", mapped.Geometry)
	assert.Len(t, line, 4*cfg.Density-4+1)
	assert.Equal(t, line[0], line[len(line)-1])
	assert.InDelta(t, res.Ratio, mapped.Properties.MustFloat64("ratio"), 1e-12)
	assert.Equal(t, "converged", mapped.Properties.MustString("status"))

	assert.Equal(t, res.Safe(cam), mapped.Properties.MustBool("safe"))
	if res.Safe(cam) {
		assert.Nil(t, roles[RoleInterior])
	}

	require.Len(t, fc.BBox, 4)
	assert.LessOrEqual(t, fc.BBox[0], 0.0)
	assert.GreaterOrEqual(t, fc.BBox[2], 639.0)
}

func TestContourGeoJSON_InteriorPoints(t *testing.T) {
	cam := pinhole()
	res := SolveResult{
		Ratio:   0.9,
		Zoom:    1,
		Status:  IterationLimitReached,
		Contour: Contour{{-10, -10}, {320, 240}, {700, 500}, {100, 100}},
	}

	data, err := ContourGeoJSON(cam, res, 9)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	interior := fc.Features[2]
	assert.Equal(t, RoleInterior, interior.Properties.MustString("role"))
	mp, ok := interior.Geometry.(orb.MultiPoint)
	require.True(t, ok, "interior geometry should be a multipoint, got %T", interior.Geometry)
	assert.Equal(t, orb.MultiPoint{{320, 240}, {100, 100}}, mp)

	mapped := fc.Features[1]
	assert.False(t, mapped.Properties.MustBool("safe"))
	assert.Equal(t, "iteration_limit_reached", mapped.Properties.MustString("status"))

	// bbox spans the frame and the outlying samples
	assert.Equal(t, geojson.BBox{-10, -10, 700, 500}, fc.BBox)
}
