package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
	"github.com/safe-ro/safe-ro/output"
)

func formatStat(v float64) string {
	if p := raster.FiniteOrNil(v); p != nil {
		return fmt.Sprintf("%.4f", *p)
	}
	return "n/a"
}

// AnalyzeNDVI computes NDVI for two band files and renders it to the result
// folder.
func (m *Menu) AnalyzeNDVI(ctx context.Context) error {
	m.PrintWarning("- RED (B04) and NIR (B08) must be single band rasters readable by GDAL.\n- Bands of different resolution are resampled to the larger grid.")

	red, err := m.ReadString("Enter the RED band path: ")
	if err != nil {
		return err
	}
	nir, err := m.ReadString("Enter the NIR band path: ")
	if err != nil {
		return err
	}
	factor, err := m.ReadDownsample(m.downsample)
	if err != nil {
		return err
	}

	result, err := products.ComputeIndex(red, nir, products.WithDownsample(factor))
	if err != nil {
		return fmt.Errorf("could not compute NDVI: %w", err)
	}

	stats := result.Stats()
	rows, cols := result.Grid.Shape()
	m.PrintSuccess(fmt.Sprintf("NDVI %dx%d  min %s  max %s  mean %s  valid %d/%d",
		rows, cols, formatStat(stats.Min), formatStat(stats.Max), formatStat(stats.Mean), stats.Valid, stats.Pixels))
	fmt.Fprintf(m.out, "Bounds: %s\n", result.Bounds)

	if err := os.MkdirAll(m.resultDir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	imagePath := filepath.Join(m.resultDir, "ndvi.png")
	if err := output.CreateIndexImage(result, nil, imagePath); err != nil {
		return err
	}
	tiffPath := filepath.Join(m.resultDir, "ndvi.tif")
	if err := output.SaveIndexGeoTIFF(result, 0, tiffPath); err != nil {
		return err
	}
	m.PrintSuccess(fmt.Sprintf("Saved %s and %s", imagePath, tiffPath))
	return nil
}
