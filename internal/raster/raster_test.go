package raster

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	godal.RegisterAll()
	os.Exit(m.Run())
}

func constantGrid(rows, cols int, v float64) *Grid {
	g := NewGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func writeFixture(t *testing.T, name string, g *Grid, opts ...WriteOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, WriteGeoTIFF(path, g, opts...))
	return path
}

func TestLoadBandFullResolution(t *testing.T) {
	bounds := BoundingBox{Left: 20, Bottom: 40, Right: 30, Top: 50}
	path := writeFixture(t, "band.tif", constantGrid(10, 10, 7), WithBounds(bounds, 4326))

	res := LoadBand(path, 1)
	require.True(t, res.OK())
	require.NoError(t, res.Error())

	rows, cols := res.Grid.Shape()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 10, cols)
	assert.InDelta(t, 20.0, res.Bounds.Left, 1e-9)
	assert.InDelta(t, 40.0, res.Bounds.Bottom, 1e-9)
	assert.InDelta(t, 30.0, res.Bounds.Right, 1e-9)
	assert.InDelta(t, 50.0, res.Bounds.Top, 1e-9)
	for _, v := range res.Grid.Data {
		assert.Equal(t, 7.0, v)
	}
}

func TestLoadBandDownsample(t *testing.T) {
	path := writeFixture(t, "band.tif", constantGrid(10, 10, 3))

	tests := []struct {
		factor     int
		rows, cols int
	}{
		{1, 10, 10},
		{2, 5, 5},
		{3, 3, 3},
		{10, 1, 1},
		{20, 10, 10},
	}
	for _, tt := range tests {
		res := LoadBand(path, tt.factor)
		require.True(t, res.OK(), "factor %d", tt.factor)
		rows, cols := res.Grid.Shape()
		assert.Equal(t, tt.rows, rows, "factor %d", tt.factor)
		assert.Equal(t, tt.cols, cols, "factor %d", tt.factor)
		for _, v := range res.Grid.Data {
			assert.InDelta(t, 3.0, v, 1e-6)
		}
	}
}

func TestLoadBandNonSquareDownsample(t *testing.T) {
	path := writeFixture(t, "band.tif", constantGrid(4, 12, 1))

	res := LoadBand(path, 5)
	require.True(t, res.OK())
	rows, cols := res.Grid.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 12, cols)

	res = LoadBand(path, 4)
	require.True(t, res.OK())
	rows, cols = res.Grid.Shape()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 3, cols)
}

func TestLoadBandFailures(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.tif")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not a raster"), 0644))
	valid := writeFixture(t, "valid.tif", constantGrid(2, 2, 1))

	tests := []struct {
		name   string
		path   string
		factor int
		reason Reason
	}{
		{"missing file", filepath.Join(dir, "missing.tif"), 1, ReasonOpen},
		{"corrupt file", corrupt, 1, ReasonOpen},
		{"zero factor", valid, 0, ReasonInvalidFactor},
		{"negative factor", valid, -2, ReasonInvalidFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := LoadBand(tt.path, tt.factor)
			assert.False(t, res.OK())
			assert.Nil(t, res.Grid)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.reason, res.Err.Reason)
			assert.True(t, errors.Is(res.Error(), ErrLoad))
		})
	}
}

func TestLoadBandNoDataBecomesNaN(t *testing.T) {
	g := constantGrid(2, 2, 5)
	g.Set(0, 1, -9999)
	path := writeFixture(t, "nodata.tif", g, WithNoData(-9999))

	res := LoadBand(path, 1)
	require.True(t, res.OK())
	assert.True(t, math.IsNaN(res.Grid.At(0, 1)))
	assert.Equal(t, 5.0, res.Grid.At(1, 1))
}

func TestLoadBandPixelBoundsWithoutGeotransform(t *testing.T) {
	path := writeFixture(t, "plain.tif", constantGrid(3, 4, 1))

	res := LoadBand(path, 1)
	require.True(t, res.OK())
	assert.Equal(t, BoundingBox{Left: 0, Bottom: 3, Right: 4, Top: 0}, res.Bounds)
}

func TestResize(t *testing.T) {
	g := constantGrid(6, 12, 0.25)

	out, err := Resize(g, 10, 12)
	require.NoError(t, err)
	rows, cols := out.Shape()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 12, cols)
	for _, v := range out.Data {
		assert.InDelta(t, 0.25, v, 1e-9)
	}

	same, err := Resize(g, 6, 12)
	require.NoError(t, err)
	assert.Equal(t, g.Data, same.Data)
	same.Data[0] = 1
	assert.Equal(t, 0.25, g.Data[0])

	_, err = Resize(g, 0, 3)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	g, err := GridFromRows([][]float64{{1, 2}, {math.NaN(), 3}})
	require.NoError(t, err)

	s := Summarize(g)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 3, s.Valid)
	assert.Equal(t, 4, s.Pixels)

	empty := Summarize(constantGrid(2, 2, math.NaN()))
	assert.True(t, math.IsNaN(empty.Mean))
	assert.Equal(t, 0, empty.Valid)
}

func TestNormalize(t *testing.T) {
	g, err := GridFromRows([][]float64{{0, 2}, {4, math.NaN()}})
	require.NoError(t, err)

	out := Normalize(g)
	assert.Equal(t, 0.0, out.At(0, 0))
	assert.Equal(t, 0.5, out.At(0, 1))
	assert.Equal(t, 1.0, out.At(1, 0))
	assert.True(t, math.IsNaN(out.At(1, 1)))

	flat := Normalize(constantGrid(2, 2, 9))
	assert.Equal(t, []float64{0, 0, 0, 0}, flat.Data)
}

func TestGridFromRowsRejectsRaggedRows(t *testing.T) {
	_, err := GridFromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestMaskCount(t *testing.T) {
	m := NewMask(2, 2)
	m.Data[1] = 1
	m.Data[3] = 1
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, uint8(1), m.At(1, 1))
}

func TestStatsJSON(t *testing.T) {
	data, err := json.Marshal(Stats{Min: -0.5, Max: 1, Mean: 0.25, Std: 0.1, Valid: 3, Pixels: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":-0.5,"max":1,"mean":0.25,"std":0.1,"valid":3,"pixels":4}`, string(data))

	data, err = json.Marshal(Summarize(constantGrid(1, 2, math.NaN())))
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":null,"max":null,"mean":null,"std":null,"valid":0,"pixels":2}`, string(data))

	var back Stats
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Mean))
	assert.Equal(t, 2, back.Pixels)
}

func TestBoundingBoxPixel(t *testing.T) {
	b := BoundingBox{Left: 20, Bottom: 40, Right: 30, Top: 50}
	cases := []struct {
		x, y     float64
		col, row int
		ok       bool
	}{
		{20, 50, 0, 0, true},
		{30, 40, 9, 9, true},
		{25, 45, 5, 5, true},
		{21.5, 48.5, 1, 1, true},
		{19.9, 45, 0, 0, false},
		{25, 50.1, 0, 0, false},
	}
	for _, tc := range cases {
		col, row, ok := b.Pixel(tc.x, tc.y, 10, 10)
		assert.Equal(t, tc.ok, ok, "(%v, %v)", tc.x, tc.y)
		if tc.ok {
			assert.Equal(t, tc.col, col)
			assert.Equal(t, tc.row, row)
		}
	}

	_, _, ok := BoundingBox{}.Pixel(0, 0, 10, 10)
	assert.False(t, ok)
}
