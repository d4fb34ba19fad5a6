package products

import (
	"math"
	"sort"
	"time"

	"github.com/safe-ro/safe-ro/internal/metrics"
	"github.com/safe-ro/safe-ro/internal/raster"
)

// FloodMask marks pixels whose backscatter is below Threshold. Low radar
// backscatter is a water heuristic, not a validated flood extent.
type FloodMask struct {
	Mask      *raster.Mask
	Bounds    raster.BoundingBox
	Threshold float64
}

// FloodedPercent is the share of masked pixels, 0..100.
func (f *FloodMask) FloodedPercent() float64 {
	if len(f.Mask.Data) == 0 {
		return 0
	}
	return float64(f.Mask.Count()) / float64(len(f.Mask.Data)) * 100
}

// DetectThresholdMask loads a radar band and marks the pixels strictly below
// the threshold. Without WithThreshold the threshold is a percentile of the
// finite samples. NaN samples are never marked.
func DetectThresholdMask(path string, opts ...Option) (result *FloodMask, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProduct("flood", start, err) }()

	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}

	band := raster.LoadBand(path, o.downsample)
	if !band.OK() {
		return nil, band.Error()
	}

	threshold := math.NaN()
	if o.threshold != nil {
		threshold = *o.threshold
	} else if values := band.Grid.Finite(); len(values) > 0 {
		threshold = Percentile(values, o.percentile)
	}

	mask := raster.NewMask(band.Grid.Rows, band.Grid.Cols)
	for i, v := range band.Grid.Data {
		if v < threshold {
			mask.Data[i] = 1
		}
	}

	return &FloodMask{Mask: mask, Bounds: band.Bounds, Threshold: threshold}, nil
}

// Percentile interpolates linearly between the closest ranks, the way
// numpy.percentile does by default. values must be finite and non empty;
// it is sorted in place.
func Percentile(values []float64, p float64) float64 {
	sort.Float64s(values)
	rank := p / 100 * float64(len(values)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return values[lo]
	}
	return values[lo] + (values[hi]-values[lo])*(rank-float64(lo))
}
