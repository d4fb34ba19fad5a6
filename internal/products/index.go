package products

import (
	"fmt"
	"math"
	"time"

	"github.com/safe-ro/safe-ro/internal/metrics"
	"github.com/safe-ro/safe-ro/internal/raster"
)

// IndexResult is an NDVI grid in [-1, 1] with the bounds of the RED band.
type IndexResult struct {
	Grid   *raster.Grid
	Bounds raster.BoundingBox
}

func (r *IndexResult) Stats() raster.Stats {
	return raster.Summarize(r.Grid)
}

// ComputeIndex loads the RED and NIR bands and returns their NDVI. Bands of
// different shape are both resampled to the larger rows and columns.
func ComputeIndex(redPath, nirPath string, opts ...Option) (result *IndexResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProduct("ndvi", start, err) }()

	o := newOptions(opts)

	red := raster.LoadBand(redPath, o.downsample)
	if !red.OK() {
		return nil, red.Error()
	}
	nir := raster.LoadBand(nirPath, o.downsample)
	if !nir.OK() {
		return nil, nir.Error()
	}

	redGrid, nirGrid := red.Grid, nir.Grid
	if !redGrid.SameShape(nirGrid) {
		rows := max(redGrid.Rows, nirGrid.Rows)
		cols := max(redGrid.Cols, nirGrid.Cols)
		if redGrid, err = raster.Resize(redGrid, rows, cols); err != nil {
			return nil, fmt.Errorf("failed to align red band: %w", err)
		}
		if nirGrid, err = raster.Resize(nirGrid, rows, cols); err != nil {
			return nil, fmt.Errorf("failed to align nir band: %w", err)
		}
	}

	return &IndexResult{
		Grid:   calculateIndex(nirGrid, redGrid),
		Bounds: red.Bounds,
	}, nil
}

// calculateIndex returns (a-b)/(a+b) clipped to [-1, 1].
func calculateIndex(a, b *raster.Grid) *raster.Grid {
	out := raster.NewGrid(a.Rows, a.Cols)
	for i := range out.Data {
		denominator := a.Data[i] + b.Data[i]
		if denominator == 0 {
			denominator = Epsilon
		}
		value := (a.Data[i] - b.Data[i]) / denominator
		if !math.IsNaN(value) {
			value = math.Max(-1, math.Min(1, value))
		}
		out.Data[i] = value
	}
	return out
}
