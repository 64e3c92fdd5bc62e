package scan

import (
	"image"
	"image/color"
	"math"

	"github.com/brianolson/omrsheet/patch"
	xidraw "golang.org/x/image/draw"
)

// RegistrationDebugImage tiles the last search window of each corner, raw
// pixels on the top row and the thresholded window below. It works on
// unregistered sheets.
func (s *Sheet) RegistrationDebugImage() *image.RGBA {
	side := 1
	for _, m := range s.marks {
		if m.Area.W > side {
			side = m.Area.W
		}
		if m.Area.H > side {
			side = m.Area.H
		}
	}
	gridWidth := len(s.marks)
	pxWidth := (side * gridWidth) + (gridWidth - 1)
	pxHeight := (side * 2) + 1
	out := image.NewRGBA(image.Rect(0, 0, pxWidth, pxHeight))
	xidraw.Draw(out, out.Rect, image.NewUniform(color.RGBA{0, 0, 128, 255}), image.Point{}, xidraw.Src)
	for gx, m := range s.marks {
		r := m.Area.Rect()
		if r.Empty() {
			continue
		}
		ox := gx * (side + 1)
		xidraw.Draw(out, image.Rect(ox, 0, ox+r.Dx(), r.Dy()), s.raw.Crop(r), r.Min, xidraw.Src)
		bin := patch.Binarize(s.raw.Gray(), r)
		xidraw.Draw(out, image.Rect(ox, side+1, ox+bin.Rect.Dx(), side+1+bin.Rect.Dy()), bin, image.Point{}, xidraw.Src)
	}
	return out
}

// CellsDebugImage stacks every choice cell of the registered image at 4x,
// question by question, with a green bar down the left of marked cells.
func (s *Sheet) CellsDebugImage() (*image.NRGBA, error) {
	if err := s.notRegistered(); err != nil {
		return nil, err
	}
	const zoom = 4
	const bar = 3
	nq := s.grom.MaxQuestions()
	nc := s.grom.MaxChoicesPerQuestion()
	maxWidth := 0
	maxHeight := 0
	for q := 0; q < nq; q++ {
		for c := 0; c < nc; c++ {
			a := s.grom.ChoiceCellArea(q, c)
			maxWidth = int(math.Max(float64(maxWidth), float64(a.W)))
			maxHeight = int(math.Max(float64(maxHeight), float64(a.H)))
		}
	}
	cw := maxWidth * zoom
	ch := maxHeight * zoom
	oi := image.NewNRGBA(image.Rect(0, 0, (cw+1)*nc, (ch+1)*nq))
	green := image.NewUniform(color.NRGBA{0, 255, 0, 255})
	for q := 0; q < nq; q++ {
		for c := 0; c < nc; c++ {
			a := s.grom.ChoiceCellArea(q, c)
			dst := image.Rect(c*(cw+1), q*(ch+1), c*(cw+1)+a.W*zoom, q*(ch+1)+a.H*zoom)
			src := s.crop.Crop(a.Rect())
			xidraw.NearestNeighbor.Scale(oi, dst, src, src.Rect, xidraw.Src, nil)
			if s.marked(s.naverage(a)) {
				b := image.Rect(dst.Min.X, dst.Min.Y, dst.Min.X+bar, dst.Max.Y)
				xidraw.Draw(oi, b, green, image.Point{}, xidraw.Src)
			}
		}
	}
	return oi, nil
}
