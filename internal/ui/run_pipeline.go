package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/safe-ro/safe-ro/internal/pipeline"
	"github.com/safe-ro/safe-ro/output"
)

// RunPipeline asks for every input and runs them together. Empty answers
// skip the matching product.
func (m *Menu) RunPipeline(ctx context.Context) error {
	m.PrintWarning("- Leave a path empty to skip the product.\n- RED and NIR must be given together.")

	var in pipeline.Inputs
	var err error
	if in.Region, err = m.ReadString("Enter the region name (optional): "); err != nil {
		return err
	}
	if in.RedPath, err = m.ReadString("Enter the RED band path: "); err != nil {
		return err
	}
	if in.NIRPath, err = m.ReadString("Enter the NIR band path: "); err != nil {
		return err
	}
	if in.S1Path, err = m.ReadString("Enter the Sentinel-1 band path: "); err != nil {
		return err
	}
	if in.FIRMSPath, err = m.ReadString("Enter the FIRMS CSV path: "); err != nil {
		return err
	}
	if in.Downsample, err = m.ReadDownsample(m.downsample); err != nil {
		return err
	}

	report, err := m.runner.Run(ctx, in)
	if err != nil {
		return fmt.Errorf("could not run pipeline: %w", err)
	}

	s := report.Summary
	if s.NDVI != nil {
		m.PrintSuccess(fmt.Sprintf("NDVI mean %s  min %s  max %s",
			formatStat(s.NDVI.Stats.Mean), formatStat(s.NDVI.Stats.Min), formatStat(s.NDVI.Stats.Max)))
	}
	if s.Flood != nil {
		m.PrintSuccess(fmt.Sprintf("Flooded area: %.2f%%", s.Flood.FloodedPercent))
	}
	if s.Fires != nil {
		m.PrintSuccess(fmt.Sprintf("High confidence fires: %d", s.Fires.Count))
	}

	if report.Index == nil {
		return nil
	}
	if err := os.MkdirAll(m.resultDir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	imagePath := filepath.Join(m.resultDir, "pipeline_ndvi.png")
	if err := output.CreateIndexImage(report.Index, report.Fires, imagePath); err != nil {
		return err
	}
	m.PrintSuccess(fmt.Sprintf("Saved %s", imagePath))
	return nil
}
