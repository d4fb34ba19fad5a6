package output

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/safe-ro/safe-ro/internal/firms"
	"github.com/safe-ro/safe-ro/internal/products"
	"github.com/safe-ro/safe-ro/internal/raster"
)

var (
	rampLow  = color.RGBA{R: 215, G: 48, B: 39, A: 255}
	rampMid  = color.RGBA{R: 255, G: 255, B: 191, A: 255}
	rampHigh = color.RGBA{R: 26, G: 152, B: 80, A: 255}
	water    = color.RGBA{R: 33, G: 102, B: 172, A: 255}
)

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// valueToColor maps a value in [-1, 1] onto a red, yellow, green ramp.
func valueToColor(v float64) color.RGBA {
	norm := clamp((v + 1) / 2)
	from, to, ratio := rampLow, rampMid, norm/0.5
	if norm > 0.5 {
		from, to, ratio = rampMid, rampHigh, (norm-0.5)/0.5
	}
	return color.RGBA{
		R: lerp(from.R, to.R, ratio),
		G: lerp(from.G, to.G, ratio),
		B: lerp(from.B, to.B, ratio),
		A: 255,
	}
}

// CreateIndexImage renders an NDVI grid as PNG. NaN pixels stay transparent
// and fires inside the scene are drawn as red dots.
func CreateIndexImage(result *products.IndexResult, fires []firms.Hotspot, outputPath string) error {
	g := result.Grid
	dc := gg.NewContext(g.Cols, g.Rows)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := g.At(row, col)
			if math.IsNaN(v) {
				continue
			}
			dc.SetColor(valueToColor(v))
			dc.SetPixel(col, row)
		}
	}

	radius := math.Max(2, float64(max(g.Rows, g.Cols))/200)
	dc.SetRGB(1, 0, 0)
	for _, fire := range fires {
		col, row, ok := result.Bounds.Pixel(fire.Longitude, fire.Latitude, g.Rows, g.Cols)
		if !ok {
			continue
		}
		dc.DrawCircle(float64(col), float64(row), radius)
		dc.Fill()
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateMaskImage renders water pixels blue on a transparent background.
func CreateMaskImage(mask *products.FloodMask, outputPath string) error {
	m := mask.Mask
	dc := gg.NewContext(m.Cols, m.Rows)
	dc.SetColor(water)
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			if m.At(row, col) == 1 {
				dc.SetPixel(col, row)
			}
		}
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateBandImage renders a raw band as a grey preview stretched between its
// minimum and maximum.
func CreateBandImage(g *raster.Grid, outputPath string) error {
	norm := raster.Normalize(g)
	dc := gg.NewContext(g.Cols, g.Rows)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := norm.At(row, col)
			if math.IsNaN(v) {
				continue
			}
			dc.SetRGB(v, v, v)
			dc.SetPixel(col, row)
		}
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateBandPreview loads the band at path with the same downsample factor
// as the product and renders it with CreateBandImage.
func CreateBandPreview(path string, factor int, outputPath string) error {
	band := raster.LoadBand(path, factor)
	if !band.OK() {
		return band.Error()
	}
	return CreateBandImage(band.Grid, outputPath)
}
