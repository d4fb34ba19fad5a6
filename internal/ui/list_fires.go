package ui

import (
	"context"
	"fmt"

	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/pipeline"
)

// ListFires prints the high confidence hotspots of a FIRMS CSV export.
func (m *Menu) ListFires(ctx context.Context) error {
	path, err := m.ReadString("Enter the FIRMS CSV path: ")
	if err != nil {
		return err
	}
	minConfidence, err := m.ReadOptionalFloat(fmt.Sprintf("Enter the minimum confidence [%d]: ", firms.DefaultMinConfidence))
	if err != nil {
		return err
	}
	threshold := float64(firms.DefaultMinConfidence)
	if minConfidence != nil {
		threshold = *minConfidence
	}

	detector, err := firms.Load(path)
	if err != nil {
		return err
	}
	fires := detector.FilterByConfidence(threshold)
	m.PrintSuccess(fmt.Sprintf("%d fires with confidence >= %.0f", len(fires), threshold))
	for _, fire := range fires[:min(pipeline.SampleSize, len(fires))] {
		fmt.Fprintf(m.out, "%s%.4f, %.4f  confidence %s  %s%s\n",
			ColorGreen, fire.Latitude, fire.Longitude, fire.Confidence, fire.AcqDate, ColorReset)
	}
	return nil
}
