package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
)

// ManifestRow is one line of a batch manifest CSV.
type ManifestRow struct {
	Region     string `csv:"region"`
	RedPath    string `csv:"red_path"`
	NIRPath    string `csv:"nir_path"`
	S1Path     string `csv:"s1_path"`
	FIRMSPath  string `csv:"firms_path"`
	Threshold  string `csv:"threshold"`
	Percentile string `csv:"percentile"`
	Downsample string `csv:"downsample"`
}

func (m ManifestRow) Inputs() (Inputs, error) {
	in := Inputs{
		Region:    strings.TrimSpace(m.Region),
		RedPath:   strings.TrimSpace(m.RedPath),
		NIRPath:   strings.TrimSpace(m.NIRPath),
		S1Path:    strings.TrimSpace(m.S1Path),
		FIRMSPath: strings.TrimSpace(m.FIRMSPath),
	}
	if value := strings.TrimSpace(m.Threshold); value != "" {
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return in, fmt.Errorf("invalid threshold %q", value)
		}
		in.Threshold = &threshold
	}
	if value := strings.TrimSpace(m.Percentile); value != "" {
		percentile, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return in, fmt.Errorf("invalid percentile %q", value)
		}
		in.Percentile = &percentile
	}
	if value := strings.TrimSpace(m.Downsample); value != "" {
		factor, err := strconv.Atoi(value)
		if err != nil {
			return in, fmt.Errorf("invalid downsample %q", value)
		}
		in.Downsample = factor
	}
	return in, nil
}

// ReadManifest parses a batch manifest CSV.
func ReadManifest(path string) ([]Inputs, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []ManifestRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	inputs := make([]Inputs, 0, len(rows))
	for i, row := range rows {
		in, err := row.Inputs()
		if err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", i+2, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

type BatchResult struct {
	Inputs  Inputs
	Summary *Summary
	Err     error
}

// RunBatch summarises independent scene sets on a worker pool. Results keep
// the order of inputs.
func (r *Runner) RunBatch(ctx context.Context, inputs []Inputs, workers int) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]BatchResult, len(inputs))

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(inputs)), "Running pipeline")
	}

	wp := workerpool.New(workers)
	for i, in := range inputs {
		wp.Submit(func() {
			results[i] = BatchResult{Inputs: in}
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			summary, err := r.Summarize(ctx, in)
			if err != nil {
				results[i].Err = err
			} else {
				results[i].Summary = &summary
			}
			if bar != nil {
				_ = bar.Add(1)
			}
		})
	}
	wp.StopWait()
	return results
}
