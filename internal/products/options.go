package products

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Epsilon replaces exact zero denominators in the normalized difference.
	Epsilon = 1e-6

	DefaultPercentile = 20.0
)

var ErrInvalidParameter = errors.New("invalid parameter")

type options struct {
	downsample int
	threshold  *float64
	percentile float64
}

// Option configures ComputeIndex and DetectThresholdMask.
type Option func(*options)

// WithDownsample decimates the input bands by an integer factor.
func WithDownsample(factor int) Option {
	return func(o *options) { o.downsample = factor }
}

// WithThreshold uses a fixed threshold instead of a percentile.
func WithThreshold(t float64) Option {
	return func(o *options) { o.threshold = &t }
}

// WithPercentile sets the percentile used when no threshold is given.
func WithPercentile(p float64) Option {
	return func(o *options) { o.percentile = p }
}

func newOptions(opts []Option) options {
	o := options{downsample: 1, percentile: DefaultPercentile}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) validate() error {
	if o.threshold != nil {
		if math.IsNaN(*o.threshold) {
			return fmt.Errorf("%w: threshold is NaN", ErrInvalidParameter)
		}
		return nil
	}
	if math.IsNaN(o.percentile) || o.percentile < 0 || o.percentile > 100 {
		return fmt.Errorf("%w: percentile %v outside [0, 100]", ErrInvalidParameter, o.percentile)
	}
	return nil
}
