package output

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/safe-ro/safe-ro/internal/pipeline"
)

// SummaryRow is one line of the batch CSV report. Empty cells mean the
// product was not requested or could not be computed.
type SummaryRow struct {
	Region         string `csv:"region"`
	RedPath        string `csv:"red_path"`
	S1Path         string `csv:"s1_path"`
	NDVIMin        string `csv:"ndvi_min"`
	NDVIMax        string `csv:"ndvi_max"`
	NDVIMean       string `csv:"ndvi_mean"`
	FloodedPercent string `csv:"flooded_area_percent"`
	FloodThreshold string `csv:"flood_threshold"`
	Fires          string `csv:"high_confidence_fires"`
	Precipitation  string `csv:"precipitation_mm"`
	Error          string `csv:"error"`
}

func formatFloat(v float64) string {
	if v != v {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

func NewSummaryRow(r pipeline.BatchResult) SummaryRow {
	row := SummaryRow{Region: r.Inputs.Region, RedPath: r.Inputs.RedPath, S1Path: r.Inputs.S1Path}
	if r.Err != nil {
		row.Error = r.Err.Error()
		return row
	}
	s := r.Summary
	if s.NDVI != nil {
		row.NDVIMin = formatFloat(s.NDVI.Stats.Min)
		row.NDVIMax = formatFloat(s.NDVI.Stats.Max)
		row.NDVIMean = formatFloat(s.NDVI.Stats.Mean)
	}
	if s.Flood != nil {
		row.FloodedPercent = formatFloat(s.Flood.FloodedPercent)
		if s.Flood.Threshold != nil {
			row.FloodThreshold = formatFloat(*s.Flood.Threshold)
		}
	}
	if s.Fires != nil {
		row.Fires = fmt.Sprintf("%d", s.Fires.Count)
	}
	if s.Weather != nil {
		row.Precipitation = formatFloat(s.Weather.TotalPrecipitation)
	}
	return row
}

// WriteSummaryReport writes one CSV line per batch result.
func WriteSummaryReport(results []pipeline.BatchResult, outputPath string) error {
	rows := make([]SummaryRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, NewSummaryRow(r))
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
