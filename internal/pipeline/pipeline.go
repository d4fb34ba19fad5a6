// Package pipeline combines the vegetation index, the flood mask and the
// fire hotspots of one scene set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/metrics"
	"github.com/safe-ro/safe-ro/internal/notification"
	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
	"github.com/safe-ro/safe-ro/internal/sentinel"
	"github.com/safe-ro/safe-ro/internal/weather"
)

// SampleSize is the number of fires kept in a Summary.
const SampleSize = 5

var ErrNoInputs = errors.New("no input bands given")

type Inputs struct {
	Region     string   `json:"region,omitempty"`
	RedPath    string   `json:"red_path,omitempty"`
	NIRPath    string   `json:"nir_path,omitempty"`
	S1Path     string   `json:"s1_path,omitempty"`
	FIRMSPath  string   `json:"firms_path,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Percentile *float64 `json:"percentile,omitempty"`
	Downsample int      `json:"downsample,omitempty"`
}

// Label names the inputs in logs and notifications.
func (in Inputs) Label() string {
	switch {
	case in.Region != "":
		return in.Region
	case in.RedPath != "":
		return in.RedPath
	case in.S1Path != "":
		return in.S1Path
	}
	return in.FIRMSPath
}

func (in Inputs) validate() error {
	if in.RedPath == "" && in.NIRPath == "" && in.S1Path == "" && in.FIRMSPath == "" {
		return ErrNoInputs
	}
	if (in.RedPath == "") != (in.NIRPath == "") {
		return fmt.Errorf("%w: red and nir paths must be given together", products.ErrInvalidParameter)
	}
	return nil
}

func (in Inputs) floodOptions() []products.Option {
	opts := []products.Option{products.WithDownsample(in.downsample())}
	if in.Threshold != nil {
		opts = append(opts, products.WithThreshold(*in.Threshold))
	}
	if in.Percentile != nil {
		opts = append(opts, products.WithPercentile(*in.Percentile))
	}
	return opts
}

func (in Inputs) downsample() int {
	if in.Downsample == 0 {
		return 1
	}
	return in.Downsample
}

type NDVISummary struct {
	Stats  raster.Stats       `json:"stats"`
	Bounds raster.BoundingBox `json:"bounds"`
}

type FloodSummary struct {
	FloodedPercent float64            `json:"flooded_area_percent"`
	Threshold      *float64           `json:"threshold"`
	Bounds         raster.BoundingBox `json:"bounds"`
}

type FireSummary struct {
	Count   int             `json:"count"`
	Example []firms.Hotspot `json:"example"`
}

// Summary is the serialisable outcome of a run.
type Summary struct {
	Region string        `json:"region,omitempty"`
	NDVI   *NDVISummary  `json:"ndvi,omitempty"`
	Flood  *FloodSummary `json:"flood,omitempty"`
	Fires  *FireSummary  `json:"fires,omitempty"`

	Weather *weather.Summary `json:"weather,omitempty"`
}

// Report keeps the full products next to the summary.
type Report struct {
	Summary Summary
	Index   *products.IndexResult
	Flood   *products.FloodMask
	Fires   []firms.Hotspot
}

type Recorder interface {
	Save(ctx context.Context, kind string, inputs, summary any, runErr error) (string, error)
}

type WeatherSource interface {
	Recent(ctx context.Context, b orb.Bound, days int) (*weather.Summary, error)
}

type Notifier interface {
	SendError(ctx context.Context, errorMessage string) error
	SendSuccess(ctx context.Context, successMessage string, fields ...notification.DiscordField) error
	SendFloodAlert(ctx context.Context, scene string, floodedPercent, alertPercent float64) error
}

// Run computes every product the inputs allow. NDVI, flood mask and fires
// are computed concurrently; the first failure cancels the run.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Report, error) {
	start := time.Now()
	report, err := r.run(ctx, in)
	r.record(ctx, in, report, err)
	if err != nil {
		log.Errorw("pipeline failed", "scene", in.Label(), "error", err)
		r.notifyError(ctx, fmt.Sprintf("pipeline for %s failed: %v", in.Label(), err))
		return nil, err
	}
	log.Infow("pipeline finished", "scene", in.Label(), "duration", time.Since(start))
	r.notifySuccess(ctx, in, report.Summary)
	return report, nil
}

func (r *Runner) run(ctx context.Context, in Inputs) (*Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	report := &Report{Summary: Summary{Region: in.Region}}
	g, gctx := errgroup.WithContext(ctx)

	if in.RedPath != "" {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			index, err := products.ComputeIndex(in.RedPath, in.NIRPath, products.WithDownsample(in.downsample()))
			if err != nil {
				return fmt.Errorf("could not compute NDVI: %w", err)
			}
			report.Index = index
			report.Summary.NDVI = &NDVISummary{Stats: index.Stats(), Bounds: index.Bounds}
			return nil
		})
	}

	if in.S1Path != "" {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			flood, err := products.DetectThresholdMask(in.S1Path, in.floodOptions()...)
			if err != nil {
				return fmt.Errorf("could not compute flood mask: %w", err)
			}
			report.Flood = flood
			report.Summary.Flood = &FloodSummary{
				FloodedPercent: flood.FloodedPercent(),
				Threshold:      raster.FiniteOrNil(flood.Threshold),
				Bounds:         flood.Bounds,
			}
			return nil
		})
	}

	if in.FIRMSPath != "" {
		g.Go(func() error {
			detector, err := firms.Load(in.FIRMSPath)
			if err != nil {
				return err
			}
			report.Fires = detector.FilterByConfidence(r.minConfidence)
			report.Summary.Fires = &FireSummary{
				Count:   len(report.Fires),
				Example: report.Fires[:min(SampleSize, len(report.Fires))],
			}
			return nil
		})
	}

	if r.weather != nil {
		if _, bound, ok := sentinel.Region(in.Region); ok {
			g.Go(func() error {
				// weather is context only, a failure never fails the run
				wctx, cancel := context.WithTimeout(gctx, r.weatherTimeout)
				defer cancel()
				w, err := r.weather.Recent(wctx, bound, r.weatherDays)
				if err != nil {
					log.Warnw("weather unavailable", "region", in.Region, "error", err)
					return nil
				}
				report.Summary.Weather = w
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if report.Summary.Flood != nil {
		metrics.FloodedPercent.Set(report.Summary.Flood.FloodedPercent)
	}
	return report, nil
}

func (r *Runner) record(ctx context.Context, in Inputs, report *Report, runErr error) {
	if r.recorder == nil {
		return
	}
	var summary any
	if report != nil {
		summary = report.Summary
	}
	if _, err := r.recorder.Save(ctx, "pipeline", in, summary, runErr); err != nil {
		log.Warnf("failed to record run: %v", err)
	}
}

func (r *Runner) notifyError(ctx context.Context, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.SendError(ctx, message); err != nil {
		log.Warnf("failed to send error notification: %v", err)
	}
}

func (r *Runner) notifySuccess(ctx context.Context, in Inputs, s Summary) {
	if r.notifier == nil {
		return
	}
	if s.Flood != nil && s.Flood.FloodedPercent > r.alertPercent {
		if err := r.notifier.SendFloodAlert(ctx, in.Label(), s.Flood.FloodedPercent, r.alertPercent); err != nil {
			log.Warnf("failed to send flood alert: %v", err)
		}
	}
	if !r.notifySuccessRuns {
		return
	}

	var fields []notification.DiscordField
	if s.NDVI != nil {
		fields = append(fields, notification.DiscordField{Name: "NDVI mean", Value: fmt.Sprintf("%.3f", s.NDVI.Stats.Mean), Inline: true})
	}
	if s.Flood != nil {
		fields = append(fields, notification.DiscordField{Name: "Flooded area", Value: fmt.Sprintf("%.2f%%", s.Flood.FloodedPercent), Inline: true})
	}
	if s.Fires != nil {
		fields = append(fields, notification.DiscordField{Name: "High confidence fires", Value: fmt.Sprintf("%d", s.Fires.Count), Inline: true})
	}
	if err := r.notifier.SendSuccess(ctx, fmt.Sprintf("Pipeline for %s finished", in.Label()), fields...); err != nil {
		log.Warnf("failed to send success notification: %v", err)
	}
}
