package output

import (
	"math"

	"github.com/airbusgeo/godal"

	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
)

// SaveIndexGeoTIFF exports an NDVI grid as Float32 with NaN as no-data.
// epsg may be 0 when the source CRS is unknown.
func SaveIndexGeoTIFF(result *products.IndexResult, epsg int, outputPath string) error {
	return raster.WriteGeoTIFF(outputPath, result.Grid,
		raster.WithDataType(godal.Float32),
		raster.WithBounds(result.Bounds, epsg),
		raster.WithNoData(math.NaN()))
}

// SaveMaskGeoTIFF exports a flood mask as a Byte raster of 0/1.
func SaveMaskGeoTIFF(mask *products.FloodMask, epsg int, outputPath string) error {
	m := mask.Mask
	g := raster.NewGrid(m.Rows, m.Cols)
	for i, v := range m.Data {
		g.Data[i] = float64(v)
	}
	return raster.WriteGeoTIFF(outputPath, g,
		raster.WithDataType(godal.Byte),
		raster.WithBounds(mask.Bounds, epsg))
}
