package raster

import "fmt"

// BoundingBox is the extent of a raster in its native CRS.
type BoundingBox struct {
	Left   float64 `json:"left" csv:"left"`
	Bottom float64 `json:"bottom" csv:"bottom"`
	Right  float64 `json:"right" csv:"right"`
	Top    float64 `json:"top" csv:"top"`
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f, %.6f)", b.Left, b.Bottom, b.Right, b.Top)
}

// Pixel converts a coordinate inside b to the column and row of a raster
// of rows x cols covering b. ok is false when the point falls outside.
func (b BoundingBox) Pixel(x, y float64, rows, cols int) (col, row int, ok bool) {
	width := b.Right - b.Left
	height := b.Top - b.Bottom
	if width <= 0 || height <= 0 || rows <= 0 || cols <= 0 {
		return 0, 0, false
	}
	if x < b.Left || x > b.Right || y < b.Bottom || y > b.Top {
		return 0, 0, false
	}
	col = int((x - b.Left) / width * float64(cols))
	row = int((b.Top - y) / height * float64(rows))
	return min(col, cols-1), min(row, rows-1), true
}

// Grid is a row-major 2-D array of samples. No-data samples are NaN.
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// GridFromRows copies a slice of equally sized rows into a Grid.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	g := NewGrid(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), g.Cols)
		}
		copy(g.Data[i*g.Cols:], row)
	}
	return g, nil
}

func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Shape returns (rows, cols).
func (g *Grid) Shape() (int, int) {
	return g.Rows, g.Cols
}

func (g *Grid) SameShape(o *Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Mask is a row-major binary grid of 0/1 values.
type Mask struct {
	Rows int
	Cols int
	Data []uint8
}

func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Data: make([]uint8, rows*cols)}
}

func (m *Mask) At(row, col int) uint8 {
	return m.Data[row*m.Cols+col]
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}
