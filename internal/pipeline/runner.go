package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/safe-ro/safe-ro/internal/cache"
	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/log"
	"github.com/safe-ro/safe-ro/internal/metrics"
)

type Runner struct {
	cache             cache.CacheService[Summary]
	recorder          Recorder
	notifier          Notifier
	alertPercent      float64
	minConfidence     float64
	notifySuccessRuns bool
	progress          bool
	weather           WeatherSource
	weatherDays       int
	weatherTimeout    time.Duration
}

// WeatherTimeout bounds the weather lookup of one run.
const WeatherTimeout = 15 * time.Second

type Option func(*Runner)

func WithCache(c cache.CacheService[Summary]) Option {
	return func(r *Runner) { r.cache = c }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithNotifier sends flood alerts above alertPercent, and a message for
// every successful run when successRuns is set.
func WithNotifier(n Notifier, alertPercent float64, successRuns bool) Option {
	return func(r *Runner) {
		r.notifier = n
		r.alertPercent = alertPercent
		r.notifySuccessRuns = successRuns
	}
}

func WithMinConfidence(c float64) Option {
	return func(r *Runner) { r.minConfidence = c }
}

// WithWeather adds the weather of the last days to runs over a known region.
func WithWeather(w WeatherSource, days int) Option {
	return func(r *Runner) {
		r.weather = w
		r.weatherDays = days
	}
}

// WithProgress shows a progress bar during batches.
func WithProgress(show bool) Option {
	return func(r *Runner) { r.progress = show }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{minConfidence: firms.DefaultMinConfidence, alertPercent: 100, weatherTimeout: WeatherTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Summarize is Run without the full products. Summaries are cached on the
// input files identity (path, size, modification time) and parameters.
func (r *Runner) Summarize(ctx context.Context, in Inputs) (Summary, error) {
	if r.cache == nil {
		report, err := r.Run(ctx, in)
		if err != nil {
			return Summary{}, err
		}
		return report.Summary, nil
	}

	key, err := r.cacheKey(in)
	if err != nil {
		// missing inputs are reported by the run itself
		log.Debugf("summary of %s not cacheable: %v", in.Label(), err)
		report, err := r.Run(ctx, in)
		if err != nil {
			return Summary{}, err
		}
		return report.Summary, nil
	}
	if summary, ok := r.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		log.Debugf("summary of %s served from cache", in.Label())
		return summary, nil
	}

	report, err := r.Run(ctx, in)
	if err != nil {
		return Summary{}, err
	}
	if err := r.cache.Set(key, report.Summary); err != nil {
		log.Warnf("failed to cache summary: %v", err)
	}
	return report.Summary, nil
}

func (r *Runner) cacheKey(in Inputs) (string, error) {
	params := []interface{}{in.Region, in.downsample(), r.minConfidence}
	for _, path := range []string{in.RedPath, in.NIRPath, in.S1Path, in.FIRMSPath} {
		if path == "" {
			params = append(params, "-")
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		params = append(params, path, info.Size(), info.ModTime().UnixNano())
	}
	if in.Threshold != nil {
		params = append(params, "t", *in.Threshold)
	}
	if in.Percentile != nil {
		params = append(params, "p", *in.Percentile)
	}
	if r.weather != nil {
		params = append(params, "w", r.weatherDays, time.Now().UTC().Format(time.DateOnly))
	}
	return r.cache.GenerateKey(params...), nil
}
