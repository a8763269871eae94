package warp

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature roles used in ContourGeoJSON output
const (
	RoleFrame    = "frame"
	RoleMapped   = "mapped"
	RoleInterior = "interior"
)

// ContourGeoJSON exports a solve as a GeoJSON FeatureCollection in pixel
// coordinates: the frame rectangle, the mapped contour outline, and the
// samples left strictly inside the frame (if any). density must be the
// sampler density used for the solve so the outline walks the perimeter.
func ContourGeoJSON(cam CameraIntrinsics, result SolveResult, density int) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	frameRing := orb.Ring{
		{0, 0}, {cam.MaxX(), 0}, {cam.MaxX(), cam.MaxY()}, {0, cam.MaxY()}, {0, 0},
	}
	frame := geojson.NewFeature(orb.Polygon{frameRing})
	frame.Properties["role"] = RoleFrame
	frame.Properties["camera"] = cam.Name
	frame.Properties["width"] = cam.Width
	frame.Properties["height"] = cam.Height
	fc.Append(frame)

	mapped := geojson.NewFeature(orb.LineString(result.Contour.Outline(density)))
	mapped.Properties["role"] = RoleMapped
	mapped.Properties["ratio"] = result.Ratio
	mapped.Properties["zoom"] = result.Zoom
	mapped.Properties["status"] = result.Status.String()
	mapped.Properties["iterations"] = result.Iterations
	mapped.Properties["foldBacks"] = result.FoldBacks
	mapped.Properties["safe"] = IsSafe(result.Contour, cam)
	fc.Append(mapped)

	if idx := InteriorPoints(result.Contour, cam); len(idx) > 0 {
		mp := make(orb.MultiPoint, len(idx))
		for i, j := range idx {
			mp[i] = orb.Point{result.Contour[j].X, result.Contour[j].Y}
		}
		interior := geojson.NewFeature(mp)
		interior.Properties["role"] = RoleInterior
		interior.Properties["indices"] = idx
		fc.Append(interior)
	}

	if len(result.Contour) > 0 {
		fc.BBox = geojson.NewBBox(frameRing.Bound().Union(result.Contour.Bound()))
	}
	return fc.MarshalJSON()
}
