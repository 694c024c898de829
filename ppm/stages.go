package ppm

import (
	"github.com/fogfactory/rowpipe"
	"github.com/samber/lo"
)

const (
	FlipHorizontallyID rowpipe.StageID = "FLIP_HORIZONTALLY"
	GrayscaleID        rowpipe.StageID = "GRAYSCALE"
	ReverseRowID       rowpipe.StageID = "REVERSE_ROW"
)

// FlipHorizontally returns the row as seen in a mirror.
func FlipHorizontally(r Row) Row {
	return lo.Map(r, func(_ Pixel, x int) Pixel { return r[len(r)-1-x] })
}

// Grayscale returns the row with every pixel turned into its shade of gray.
func Grayscale(r Row) Row {
	return lo.Map(r, func(p Pixel, _ int) Pixel { return p.Gray() })
}

// Stages returns the registry of the row transforms.
func Stages() rowpipe.Registry[Row] {
	return rowpipe.Registry[Row]{
		FlipHorizontallyID: FlipHorizontally,
		GrayscaleID:        Grayscale,
		ReverseRowID:       FlipHorizontally,
	}
}

// Units turns every image into a pipeline unit, one item per row.
func Units(images []*Image) []rowpipe.Unit[Row] {
	return lo.Map(images, func(m *Image, _ int) rowpipe.Unit[Row] { return m.Rows() })
}

// FromUnits rebuilds images from pipeline units.
func FromUnits(units []rowpipe.Unit[Row]) ([]*Image, error) {
	images := make([]*Image, len(units))
	for i, unit := range units {
		m, err := NewImage(unit)
		if err != nil {
			return nil, err
		}
		images[i] = m
	}
	return images, nil
}
