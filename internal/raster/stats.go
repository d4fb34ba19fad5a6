package raster

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the finite samples of a grid.
type Stats struct {
	Min    float64 `json:"min" csv:"min"`
	Max    float64 `json:"max" csv:"max"`
	Mean   float64 `json:"mean" csv:"mean"`
	Std    float64 `json:"std" csv:"std"`
	Valid  int     `json:"valid" csv:"valid"`
	Pixels int     `json:"pixels" csv:"pixels"`
}

// MarshalJSON writes NaN statistics as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Valid  int      `json:"valid"`
		Pixels int      `json:"pixels"`
	}{FiniteOrNil(s.Min), FiniteOrNil(s.Max), FiniteOrNil(s.Mean), FiniteOrNil(s.Std), s.Valid, s.Pixels})
}

// UnmarshalJSON reads null statistics back as NaN.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Min    *float64 `json:"min"`
		Max    *float64 `json:"max"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Valid  int      `json:"valid"`
		Pixels int      `json:"pixels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	orNaN := func(v *float64) float64 {
		if v == nil {
			return math.NaN()
		}
		return *v
	}
	*s = Stats{orNaN(raw.Min), orNaN(raw.Max), orNaN(raw.Mean), orNaN(raw.Std), raw.Valid, raw.Pixels}
	return nil
}

// FiniteOrNil maps NaN and infinities to nil for JSON output.
func FiniteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Finite returns the non NaN, non infinite samples of g.
func (g *Grid) Finite() []float64 {
	values := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	return values
}

// Summarize ignores NaN samples. All statistics are NaN when no finite
// sample exists.
func Summarize(g *Grid) Stats {
	values := g.Finite()
	s := Stats{Valid: len(values), Pixels: len(g.Data)}
	if len(values) == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.Std = nan, nan, nan, nan
		return s
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.Std = stat.PopMeanStdDev(values, nil)
	return s
}

// Normalize rescales g to [0, 1]. A constant grid normalises to zeros.
func Normalize(g *Grid) *Grid {
	out := NewGrid(g.Rows, g.Cols)
	s := Summarize(g)
	if s.Valid == 0 {
		copy(out.Data, g.Data)
		return out
	}
	span := s.Max - s.Min
	for i, v := range g.Data {
		switch {
		case math.IsNaN(v):
			out.Data[i] = v
		case span == 0:
			out.Data[i] = 0
		default:
			out.Data[i] = (v - s.Min) / span
		}
	}
	return out
}
