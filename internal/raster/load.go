package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"

	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/metrics"
)

// Reason tells why a band could not be loaded.
type Reason string

const (
	ReasonInvalidFactor Reason = "invalid_factor"
	ReasonOpen          Reason = "open"
	ReasonNoBand        Reason = "no_band"
	ReasonRead          Reason = "read"
)

// ErrLoad matches every *LoadError with errors.Is.
var ErrLoad = errors.New("band load failed")

type LoadError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// LoadResult carries either a grid with its bounds or the load failure.
type LoadResult struct {
	Grid   *Grid
	Bounds BoundingBox
	Err    *LoadError
}

func (r LoadResult) OK() bool {
	return r.Err == nil && r.Grid != nil
}

// Error returns the failure as an error value, nil on success.
func (r LoadResult) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

func failed(path string, reason Reason, err error) LoadResult {
	lerr := &LoadError{Path: path, Reason: reason, Err: err}
	log.Errorw("could not load band", "path", path, "reason", string(reason), "error", err)
	metrics.BandLoads.WithLabelValues(string(reason)).Inc()
	return LoadResult{Err: lerr}
}

// LoadBand reads the first band of the raster at path. A factor above 1
// decimates the band to (height/factor, width/factor) with bilinear
// resampling; the full resolution band is read when either side would
// become zero.
func LoadBand(path string, factor int) LoadResult {
	if factor < 1 {
		return failed(path, ReasonInvalidFactor, fmt.Errorf("downsample factor must be >= 1, got %d", factor))
	}

	var gdalErr error
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		gdalErr = fmt.Errorf("gdal error %d: %s", code, msg)
		return gdalErr
	}))
	if err != nil {
		return failed(path, ReasonOpen, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return failed(path, ReasonNoBand, errors.New("dataset has no raster band"))
	}
	band := bands[0]

	structure := ds.Structure()
	width, height := structure.SizeX, structure.SizeY
	outW, outH := width, height
	if factor > 1 && width/factor > 0 && height/factor > 0 {
		outW, outH = width/factor, height/factor
	}

	grid := NewGrid(outH, outW)
	opts := []godal.BandIOOption{godal.Window(width, height)}
	if outW != width || outH != height {
		opts = append(opts, godal.Resampling(godal.Bilinear))
	}
	if err := band.Read(0, 0, grid.Data, outW, outH, opts...); err != nil {
		return failed(path, ReasonRead, err)
	}

	if nodata, ok := band.NoData(); ok {
		for i, v := range grid.Data {
			if v == nodata || (math.IsNaN(nodata) && math.IsNaN(v)) {
				grid.Data[i] = math.NaN()
			}
		}
	}

	metrics.BandLoads.WithLabelValues("ok").Inc()
	log.Debugf("loaded %s: %dx%d read as %dx%d", path, height, width, outH, outW)
	return LoadResult{Grid: grid, Bounds: datasetBounds(ds, width, height)}
}

// datasetBounds falls back to pixel space, (0, height, width, 0), when the
// dataset carries no geotransform.
func datasetBounds(ds *godal.Dataset, width, height int) BoundingBox {
	b, err := ds.Bounds()
	if err != nil {
		return BoundingBox{Left: 0, Bottom: float64(height), Right: float64(width), Top: 0}
	}
	return BoundingBox{Left: b[0], Bottom: b[1], Right: b[2], Top: b[3]}
}
