package output

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/raster"
)

// Footprint is the polygon covered by bounds.
func Footprint(b raster.BoundingBox) orb.Polygon {
	return orb.Bound{
		Min: orb.Point{b.Left, b.Bottom},
		Max: orb.Point{b.Right, b.Top},
	}.ToPolygon()
}

// CreateFootprintGeoJSON writes the product footprint with properties, plus
// one point feature per fire.
func CreateFootprintGeoJSON(b raster.BoundingBox, properties map[string]interface{}, fires []firms.Hotspot, outputPath string) error {
	fc := geojson.NewFeatureCollection()

	footprint := geojson.NewFeature(Footprint(b))
	for key, value := range properties {
		footprint.Properties[key] = value
	}
	footprint.Properties["kind"] = "footprint"
	fc.Append(footprint)

	for _, fire := range fires {
		f := geojson.NewFeature(fire.Point())
		f.Properties["kind"] = "fire"
		f.Properties["confidence"] = fire.Confidence
		f.Properties["bright_ti4"] = fire.BrightTI4
		if fire.AcqDate != "" {
			f.Properties["acq_date"] = fire.AcqDate
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}
