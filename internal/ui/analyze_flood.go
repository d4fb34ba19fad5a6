package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/output"
)

// AnalyzeFlood thresholds a Sentinel-1 backscatter band.
func (m *Menu) AnalyzeFlood(ctx context.Context) error {
	m.PrintWarning("- Low backscatter is used as a water heuristic.\n- Leave the threshold empty to derive it from a percentile.")

	path, err := m.ReadString("Enter the Sentinel-1 band path: ")
	if err != nil {
		return err
	}
	threshold, err := m.ReadOptionalFloat("Enter the threshold (empty for percentile): ")
	if err != nil {
		return err
	}
	opts := []products.Option{}
	if threshold != nil {
		opts = append(opts, products.WithThreshold(*threshold))
	} else {
		percentile, err := m.ReadOptionalFloat(fmt.Sprintf("Enter the percentile [%.0f]: ", products.DefaultPercentile))
		if err != nil {
			return err
		}
		if percentile != nil {
			opts = append(opts, products.WithPercentile(*percentile))
		}
	}
	factor, err := m.ReadDownsample(m.downsample)
	if err != nil {
		return err
	}
	opts = append(opts, products.WithDownsample(factor))

	mask, err := products.DetectThresholdMask(path, opts...)
	if err != nil {
		return fmt.Errorf("could not compute flood mask: %w", err)
	}
	m.PrintSuccess(fmt.Sprintf("Flooded area: %.2f%%  threshold %s", mask.FloodedPercent(), formatStat(mask.Threshold)))
	fmt.Fprintf(m.out, "Bounds: %s\n", mask.Bounds)

	if err := os.MkdirAll(m.resultDir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	imagePath := filepath.Join(m.resultDir, "flood.png")
	if err := output.CreateMaskImage(mask, imagePath); err != nil {
		return err
	}
	m.PrintSuccess(fmt.Sprintf("Saved %s", imagePath))
	return nil
}
