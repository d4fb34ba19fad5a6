package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

// Resize resamples g to rows x cols with bilinear interpolation. The input
// grid is left untouched.
func Resize(g *Grid, rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid target shape %dx%d", rows, cols)
	}
	if g.Rows == rows && g.Cols == cols {
		out := NewGrid(rows, cols)
		copy(out.Data, g.Data)
		return out, nil
	}

	ds, err := godal.Create(godal.Memory, "", 1, godal.Float64, g.Cols, g.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory dataset: %w", err)
	}
	defer ds.Close()

	band := ds.Bands()[0]
	if err := band.Write(0, 0, g.Data, g.Cols, g.Rows); err != nil {
		return nil, fmt.Errorf("failed to write memory dataset: %w", err)
	}

	out := NewGrid(rows, cols)
	err = band.Read(0, 0, out.Data, cols, rows,
		godal.Window(g.Cols, g.Rows),
		godal.Resampling(godal.Bilinear))
	if err != nil {
		return nil, fmt.Errorf("failed to resample to %dx%d: %w", rows, cols, err)
	}
	return out, nil
}
