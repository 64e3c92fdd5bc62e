// Package draw renders synthetic filled-in sheets for a layout, and
// distorts them the way a careless scanner would.
package draw

import (
	"fmt"
	"image"
	"image/color"

	xidraw "golang.org/x/image/draw"

	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/internal/logger"
)

// DefaultCalibrationShade is the gray of a printed calibration cell. A solid
// ink cell puts the choice threshold barely above ink black, a mid gray one
// leaves room for lighter pencil marks.
const DefaultCalibrationShade = 60

// Shade returns a pointer to v, for Fill.CalibrationShade.
func Shade(v uint8) *uint8 {
	return &v
}

// Fill describes what is on the page besides the printed paper.
type Fill struct {
	// Answers[q] lists the filled choices of question q.
	Answers [][]int
	// Barcode sets bit position p when bit p-1 of the value is 1.
	Barcode uint64
	// CalibrationShade nil prints DefaultCalibrationShade.
	CalibrationShade *uint8
	// MarkShade is the gray of filled choices, zero is black.
	MarkShade uint8

	// SkipMarks leaves registration marks off the page.
	SkipMarks []grid.Corner
	// MarkOffsets moves registration marks by raw pixels.
	MarkOffsets map[grid.Corner]image.Point
}

func (f *Fill) skip(c grid.Corner) bool {
	for _, s := range f.SkipMarks {
		if s == c {
			return true
		}
	}
	return false
}

func fillRect(im *image.Gray, r image.Rectangle, v uint8) {
	xidraw.Draw(im, r.Intersect(im.Rect), image.NewUniform(color.Gray{v}), image.Point{}, xidraw.Src)
}

// Sheet renders layout onto a white width x height page as if the page
// was scanned edge to edge.
func Sheet(width, height int, layout *grid.Layout, fill Fill) (*image.Gray, error) {
	g, err := grid.New(width, height, layout)
	if err != nil {
		return nil, err
	}
	im := image.NewGray(image.Rect(0, 0, width, height))
	fillRect(im, im.Rect, 255)

	for _, c := range grid.Corners {
		if fill.skip(c) {
			continue
		}
		r := g.RawArea(layout.MarkRect(c)).Rect()
		if off, ok := fill.MarkOffsets[c]; ok {
			r = r.Add(off)
		}
		fillRect(im, r, 0)
	}

	cal := uint8(DefaultCalibrationShade)
	if fill.CalibrationShade != nil {
		cal = *fill.CalibrationShade
	}
	for _, cr := range layout.CalibrationCells {
		fillRect(im, g.RawArea(cr).Rect(), cal)
	}
	fillRect(im, g.RawArea(layout.InkBlack).Rect(), 0)

	for q, choices := range fill.Answers {
		for _, c := range choices {
			if q >= layout.Items.Questions || c < 0 || c >= layout.Items.Choices {
				return nil, fmt.Errorf("draw: no cell q=%d c=%d", q, c)
			}
			fillRect(im, g.RawArea(layout.ChoiceCellRect(q, c)).Rect(), fill.MarkShade)
		}
	}

	bits := layout.Barcode.Bits
	if bits < 64 && fill.Barcode>>uint(bits) != 0 {
		return nil, fmt.Errorf("draw: barcode %d does not fit in %d bits", fill.Barcode, bits)
	}
	for pos := 1; pos <= bits; pos++ {
		if fill.Barcode&(1<<uint(pos-1)) != 0 {
			fillRect(im, g.RawArea(layout.BarcodeBitRect(pos)).Rect(), 0)
		}
	}
	logger.WithField("layout", layout.Name).Debugf("drew %dx%d sheet", width, height)
	return im, nil
}
