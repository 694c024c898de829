package ppm

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/samber/lo"
)

var (
	ErrInvalidImage = errors.New("invalid image")
)

// Pixel holds the red, green and blue components of a pixel.
type Pixel struct {
	R, G, B uint8
}

// NewPixel builds a pixel, quietly clamping every component into [0..MaxValue].
func NewPixel(r, g, b int) Pixel {
	return Pixel{R: clamp(r), G: clamp(g), B: clamp(b)}
}

func clamp(v int) uint8 {
	return uint8(lo.Clamp(v, 0, MaxValue))
}

// Gray returns the shade of gray of the same luminosity (0.21 R + 0.72 G + 0.07 B).
func (p Pixel) Gray() Pixel {
	level := clamp(int(math.Round(0.21*float64(p.R) + 0.72*float64(p.G) + 0.07*float64(p.B))))
	return Pixel{R: level, G: level, B: level}
}

// RGB returns the pixel as 24 bits: 0x00RRGGBB.
func (p Pixel) RGB() uint32 {
	return uint32(p.R)<<16 | uint32(p.G)<<8 | uint32(p.B)
}

// Row is a line of pixels.
type Row []Pixel

// Width is the size function of rows, used to check that all rows of an image have the same width.
func Width(r Row) int {
	return len(r)
}

// Image is an immutable, non empty grid of pixels.
type Image struct {
	rows  []Row
	width int
}

// NewImage builds an image from a snapshot of rows. It needs at least one row, and every row must have the same,
// non zero, width.
func NewImage(rows []Row) (*Image, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: at least one row is required", ErrInvalidImage)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: rows must have at least one pixel", ErrInvalidImage)
	}
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("%w: every row must have exactly %d pixels; rows[%d] has %d pixels",
				ErrInvalidImage, width, i, len(r))
		}
	}
	return &Image{
		rows:  lo.Map(rows, func(r Row, _ int) Row { return append(Row(nil), r...) }),
		width: width,
	}, nil
}

// Width returns the number of pixels per row.
func (m *Image) Width() int { return m.width }

// Height returns the number of rows.
func (m *Image) Height() int { return len(m.rows) }

// Row returns a copy of row y.
func (m *Image) Row(y int) Row {
	return append(Row(nil), m.rows[y]...)
}

// Rows returns a copy of all rows.
func (m *Image) Rows() []Row {
	return lo.Map(m.rows, func(_ Row, y int) Row { return m.Row(y) })
}

// At returns the pixel at column x of row y.
func (m *Image) At(x, y int) Pixel {
	return m.rows[y][x]
}

// Equal reports whether both images have the same pixels.
func (m *Image) Equal(other *Image) bool {
	if m.width != other.width || len(m.rows) != len(other.rows) {
		return false
	}
	for y := range m.rows {
		for x := range m.rows[y] {
			if m.rows[y][x] != other.rows[y][x] {
				return false
			}
		}
	}
	return true
}

// RGBA renders the image for the image package encoders.
func (m *Image) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.width, len(m.rows)))
	for y, r := range m.rows {
		for x, p := range r {
			img.SetRGBA(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff})
		}
	}
	return img
}
