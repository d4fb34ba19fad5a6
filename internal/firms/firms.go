// Package firms reads NASA FIRMS active fire exports.
package firms

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"

	"github.com/safe-ro/safe-ro/internal/log"
)

const DefaultMinConfidence = 80

// Hotspot is one row of a FIRMS CSV export (MODIS or VIIRS).
type Hotspot struct {
	Latitude   float64 `csv:"latitude" json:"latitude"`
	Longitude  float64 `csv:"longitude" json:"longitude"`
	BrightTI4  float64 `csv:"bright_ti4" json:"bright_ti4"`
	BrightTI5  float64 `csv:"bright_ti5" json:"bright_ti5"`
	FRP        float64 `csv:"frp" json:"frp"`
	Confidence string  `csv:"confidence" json:"confidence"`
	AcqDate    string  `csv:"acq_date" json:"acq_date,omitempty"`
	AcqTime    string  `csv:"acq_time" json:"acq_time,omitempty"`
	Satellite  string  `csv:"satellite" json:"satellite,omitempty"`
	Instrument string  `csv:"instrument" json:"instrument,omitempty"`
	DayNight   string  `csv:"daynight" json:"daynight,omitempty"`
}

// Point returns the hotspot as a lon/lat point.
func (h Hotspot) Point() orb.Point {
	return orb.Point{h.Longitude, h.Latitude}
}

// ConfidenceValue converts the confidence column to 0..100. VIIRS letter
// classes map to low=0, nominal=50 and high=100.
func (h Hotspot) ConfidenceValue() (float64, bool) {
	value := strings.ToLower(strings.TrimSpace(h.Confidence))
	switch value {
	case "l", "low":
		return 0, true
	case "n", "nominal":
		return 50, true
	case "h", "high":
		return 100, true
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// Detector holds the hotspots of one FIRMS file.
type Detector struct {
	path          string
	hotspots      []Hotspot
	hasConfidence bool
}

func Load(path string) (*Detector, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read FIRMS file: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(content)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read FIRMS header: %w", err)
	}
	columns := map[string]bool{}
	for _, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = true
	}
	if !columns["latitude"] || !columns["longitude"] {
		return nil, fmt.Errorf("FIRMS file %s has no latitude/longitude columns", path)
	}

	var hotspots []Hotspot
	if err := gocsv.UnmarshalBytes(content, &hotspots); err != nil {
		return nil, fmt.Errorf("failed to parse FIRMS file: %w", err)
	}

	log.Infof("loaded %d fire points from %s", len(hotspots), path)
	return &Detector{path: path, hotspots: hotspots, hasConfidence: columns["confidence"]}, nil
}

// NewDetector wraps hotspots that are already in memory.
func NewDetector(hotspots []Hotspot, hasConfidence bool) *Detector {
	return &Detector{hotspots: hotspots, hasConfidence: hasConfidence}
}

func (d *Detector) All() []Hotspot {
	return d.hotspots
}

// FilterByConfidence keeps hotspots with confidence >= min. Every hotspot is
// returned when the file has no confidence column.
func (d *Detector) FilterByConfidence(min float64) []Hotspot {
	if !d.hasConfidence {
		log.Warnf("'confidence' column not found in %s, returning all records", d.path)
		return d.hotspots
	}

	filtered := make([]Hotspot, 0, len(d.hotspots))
	for _, h := range d.hotspots {
		if value, ok := h.ConfidenceValue(); ok && value >= min {
			filtered = append(filtered, h)
		}
	}
	log.Infof("%d fires with confidence >= %v", len(filtered), min)
	return filtered
}

// FilterByBBox keeps hotspots inside the box, edges included.
func (d *Detector) FilterByBBox(minLat, maxLat, minLon, maxLon float64) []Hotspot {
	return InBound(d.hotspots, orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	})
}

// InBound keeps hotspots contained by bound.
func InBound(hotspots []Hotspot, bound orb.Bound) []Hotspot {
	selected := make([]Hotspot, 0)
	for _, h := range hotspots {
		if bound.Contains(h.Point()) {
			selected = append(selected, h)
		}
	}
	log.Infof("%d fires in bounding box", len(selected))
	return selected
}
