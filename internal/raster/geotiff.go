package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

type writeOpts struct {
	dtype  godal.DataType
	bounds *BoundingBox
	epsg   int
	nodata *float64
}

type WriteOption func(*writeOpts)

func WithDataType(dtype godal.DataType) WriteOption {
	return func(o *writeOpts) { o.dtype = dtype }
}

// WithBounds georeferences the output. Without it the file has no
// geotransform.
func WithBounds(b BoundingBox, epsg int) WriteOption {
	return func(o *writeOpts) {
		o.bounds = &b
		o.epsg = epsg
	}
}

func WithNoData(v float64) WriteOption {
	return func(o *writeOpts) { o.nodata = &v }
}

// WriteGeoTIFF writes g as a single band GeoTIFF (Float32 by default).
func WriteGeoTIFF(path string, g *Grid, opts ...WriteOption) error {
	o := writeOpts{dtype: godal.Float32}
	for _, opt := range opts {
		opt(&o)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, o.dtype, g.Cols, g.Rows)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := writeDataset(ds, g, o); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeDataset(ds *godal.Dataset, g *Grid, o writeOpts) error {
	if o.bounds != nil {
		b := o.bounds
		gt := [6]float64{
			b.Left, (b.Right - b.Left) / float64(g.Cols), 0,
			b.Top, 0, -(b.Top - b.Bottom) / float64(g.Rows),
		}
		if err := ds.SetGeoTransform(gt); err != nil {
			return err
		}
		if o.epsg > 0 {
			sr, err := godal.NewSpatialRefFromEPSG(o.epsg)
			if err != nil {
				return err
			}
			defer sr.Close()
			if err := ds.SetSpatialRef(sr); err != nil {
				return err
			}
		}
	}

	band := ds.Bands()[0]
	if o.nodata != nil {
		if err := band.SetNoData(*o.nodata); err != nil {
			return err
		}
	}
	return band.Write(0, 0, g.Data, g.Cols, g.Rows)
}
