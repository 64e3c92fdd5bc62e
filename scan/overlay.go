package scan

import (
	"image"

	"github.com/brianolson/omrsheet/grid"
	"github.com/brianolson/omrsheet/raster"
)

// Highlighting draws on an overlay of the registered (or raw) image. It
// never changes the pixels that shades are measured from.

func rects(areas []grid.Area) []image.Rectangle {
	out := make([]image.Rectangle, len(areas))
	for i, a := range areas {
		out[i] = a.Rect()
	}
	return out
}

// cellAreas flattens cells[q] = choice list into cell areas.
func (s *Sheet) cellAreas(cells [][]int) ([]grid.Area, error) {
	var out []grid.Area
	for q, choices := range cells {
		for _, c := range choices {
			if err := s.checkCell(q, c); err != nil {
				return nil, err
			}
			out = append(out, s.grom.ChoiceCellArea(q, c))
		}
	}
	return out, nil
}

// Outline draws a border around each listed cell, cells[q] holding the
// choice indices of question q.
func (s *Sheet) Outline(cells [][]int) error {
	if err := s.notRegistered(); err != nil {
		return err
	}
	areas, err := s.cellAreas(cells)
	if err != nil {
		return err
	}
	s.crop.Outline(rects(areas), raster.OutlineColor)
	return nil
}

// HighlightAll shades every choice cell plus the calibration cells, the
// black and white references and the barcode bits.
func (s *Sheet) HighlightAll() error {
	if err := s.notRegistered(); err != nil {
		return err
	}
	cells := make([][]int, s.grom.MaxQuestions())
	for q := range cells {
		cells[q] = make([]int, s.grom.MaxChoicesPerQuestion())
		for c := range cells[q] {
			cells[q][c] = c
		}
	}
	areas, err := s.cellAreas(cells)
	if err != nil {
		return err
	}
	s.crop.Highlight(rects(areas), raster.CellColor)
	s.crop.Highlight(rects(s.grom.CalibrationCellAreas()), raster.CellColor)
	s.crop.Highlight(rects([]grid.Area{s.grom.InkBlackArea(), s.grom.PaperWhiteArea()}), raster.HighlightColor)
	s.crop.Highlight(rects(s.grom.BarcodeBitAreas()), raster.HighlightColor)
	return nil
}

// HighlightMarked shades the cells currently read as marked.
func (s *Sheet) HighlightMarked() error {
	marks, err := s.MarkArray(AllQuestions())
	if err != nil {
		return err
	}
	areas, err := s.cellAreas(marks)
	if err != nil {
		return err
	}
	s.crop.Highlight(rects(areas), raster.CellColor)
	return nil
}

// HighlightBarcode shades the barcode bits currently read as 1.
func (s *Sheet) HighlightBarcode() error {
	if err := s.notRegistered(); err != nil {
		return err
	}
	str := s.barcodeString()
	var areas []grid.Area
	for bit := 1; bit <= len(str); bit++ {
		if str[len(str)-bit] == '1' {
			areas = append(areas, s.grom.BarcodeBitArea(bit))
		}
	}
	s.crop.Highlight(rects(areas), raster.HighlightColor)
	return nil
}

// HighlightRegArea outlines the last search window of each corner on the
// raw image and, when registered, joins the four mark centers. The
// windows are drawn even for an unregistered sheet, whose error is still
// returned.
func (s *Sheet) HighlightRegArea() error {
	areas := make([]grid.Area, 4)
	for i, m := range s.marks {
		areas[i] = m.Area
	}
	s.raw.Outline(rects(areas), raster.OutlineColor)
	if err := s.notRegistered(); err != nil {
		return err
	}
	pts := make([]raster.Point, 4)
	for i, m := range s.marks {
		pts[i] = raster.Point{X: m.X, Y: m.Y}
	}
	s.raw.Join(pts, raster.JoinColor)
	s.raw.Cross(pts, 6, raster.JoinColor)
	return nil
}
