package firms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modisCSV = `latitude,longitude,bright_ti4,confidence,acq_date,acq_time,satellite
45.60,24.70,330.1,85,2024-07-01,1130,N
45.90,25.40,310.4,40,2024-07-01,1130,N
47.10,27.60,345.0,100,2024-07-02,0210,N
44.20,23.70,300.0,80,2024-07-02,0210,N
`

const viirsCSV = `latitude,longitude,bright_ti4,bright_ti5,frp,confidence,daynight
45.5,24.5,367.2,290.1,12.3,h,D
45.6,24.6,330.0,288.0,1.5,n,D
45.7,24.7,301.0,280.0,0.7,l,N
`

const noConfidenceCSV = `latitude,longitude,bright_ti4
45.5,24.5,320
46.5,26.5,330
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firms.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	detector, err := Load(writeCSV(t, modisCSV))
	require.NoError(t, err)

	all := detector.All()
	require.Len(t, all, 4)
	assert.Equal(t, 45.60, all[0].Latitude)
	assert.Equal(t, 24.70, all[0].Longitude)
	assert.Equal(t, 330.1, all[0].BrightTI4)
	assert.Equal(t, "2024-07-01", all[0].AcqDate)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = Load(writeCSV(t, "a,b\n1,2\n"))
	assert.Error(t, err)

	_, err = Load(writeCSV(t, ""))
	assert.Error(t, err)
}

func TestFilterByConfidence(t *testing.T) {
	detector, err := Load(writeCSV(t, modisCSV))
	require.NoError(t, err)

	fires := detector.FilterByConfidence(DefaultMinConfidence)
	require.Len(t, fires, 3)
	assert.Equal(t, "85", fires[0].Confidence)
	assert.Equal(t, "100", fires[1].Confidence)
	assert.Equal(t, "80", fires[2].Confidence)

	assert.Len(t, detector.FilterByConfidence(0), 4)
	assert.Empty(t, detector.FilterByConfidence(101))
}

func TestFilterByConfidenceViirsClasses(t *testing.T) {
	detector, err := Load(writeCSV(t, viirsCSV))
	require.NoError(t, err)

	high := detector.FilterByConfidence(DefaultMinConfidence)
	require.Len(t, high, 1)
	assert.Equal(t, "h", high[0].Confidence)
	assert.Equal(t, 12.3, high[0].FRP)

	assert.Len(t, detector.FilterByConfidence(50), 2)
}

func TestFilterByConfidenceWithoutColumn(t *testing.T) {
	detector, err := Load(writeCSV(t, noConfidenceCSV))
	require.NoError(t, err)

	assert.Len(t, detector.FilterByConfidence(DefaultMinConfidence), 2)
}

func TestFilterByBBox(t *testing.T) {
	detector, err := Load(writeCSV(t, modisCSV))
	require.NoError(t, err)

	tests := []struct {
		name                           string
		minLat, maxLat, minLon, maxLon float64
		expected                       int
	}{
		{"fagaras", 45.5, 46.0, 24.5, 25.5, 2},
		{"edges are inclusive", 45.6, 45.6, 24.7, 24.7, 1},
		{"iasi", 47.0, 47.3, 27.5, 27.8, 1},
		{"empty", 40, 41, 20, 21, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fires := detector.FilterByBBox(tt.minLat, tt.maxLat, tt.minLon, tt.maxLon)
			assert.Len(t, fires, tt.expected)
		})
	}
}

func TestConfidenceValue(t *testing.T) {
	tests := []struct {
		raw      string
		value    float64
		parsable bool
	}{
		{"85", 85, true},
		{" 7.5 ", 7.5, true},
		{"H", 100, true},
		{"nominal", 50, true},
		{"low", 0, true},
		{"", 0, false},
		{"unknown", 0, false},
	}
	for _, tt := range tests {
		value, ok := Hotspot{Confidence: tt.raw}.ConfidenceValue()
		assert.Equal(t, tt.parsable, ok, tt.raw)
		assert.Equal(t, tt.value, value, tt.raw)
	}
}
