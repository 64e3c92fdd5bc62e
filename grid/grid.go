package grid

import (
	"fmt"
	"image"
	"math"
)

// Corner names one of the four registration marks.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

// Corners in stretch order, tl -> tr -> br -> bl.
var Corners = [4]Corner{TopLeft, TopRight, BottomRight, BottomLeft}

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "tl"
	case TopRight:
		return "tr"
	case BottomRight:
		return "br"
	case BottomLeft:
		return "bl"
	default:
		return fmt.Sprintf("corner(%d)", int(c))
	}
}

func (c Corner) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Area is a pixel rectangle, origin at its top left.
type Area struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (a Area) Rect() image.Rectangle {
	return image.Rect(a.X, a.Y, a.X+a.W, a.Y+a.H)
}

func AreaOf(r image.Rectangle) Area {
	return Area{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Grid is a Layout bound to the pixel size of a scan.
//
// Registration search areas are in raw scan pixels. Every other area is in
// the coordinates of the registered image, where the four mark centers sit
// exactly on the image corners.
type Grid struct {
	layout Layout
	width  int
	height int

	// raw pixels per page unit
	ppuX float64
	ppuY float64

	// registered-image pixels per page unit
	frameX float64
	frameY float64
}

func New(width, height int, l *Layout) (*Grid, error) {
	if l == nil {
		return nil, &LayoutError{"layout", "is nil"}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: empty image size %dx%d", width, height)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		layout: *l,
		width:  width,
		height: height,
		ppuX:   float64(width) / l.Page.Width,
		ppuY:   float64(height) / l.Page.Height,
	}
	m := l.Registration.Margin
	g.frameX = float64(width) / (l.Page.Width - 2*m)
	g.frameY = float64(height) / (l.Page.Height - 2*m)
	return g, nil
}

func (g *Grid) Layout() *Layout {
	return &g.layout
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) MaxQuestions() int          { return g.layout.Items.Questions }
func (g *Grid) MaxChoicesPerQuestion() int { return g.layout.Items.Choices }
func (g *Grid) BarcodeBits() int           { return g.layout.Barcode.Bits }

func round(v float64) int {
	return int(math.Round(v))
}

// RawArea converts a page rectangle to raw scan pixels, assuming the scan
// covers the page exactly.
func (g *Grid) RawArea(r Rect) Area {
	x0 := round(r.X * g.ppuX)
	y0 := round(r.Y * g.ppuY)
	x1 := round((r.X + r.W) * g.ppuX)
	y1 := round((r.Y + r.H) * g.ppuY)
	return Area{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// area converts a page rectangle to registered-image pixels.
func (g *Grid) area(r Rect) Area {
	m := g.layout.Registration.Margin
	x0 := round((r.X - m) * g.frameX)
	y0 := round((r.Y - m) * g.frameY)
	x1 := round((r.X + r.W - m) * g.frameX)
	y1 := round((r.Y + r.H - m) * g.frameY)
	return Area{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (g *Grid) ChoiceCellArea(q, c int) Area {
	return g.area(g.layout.ChoiceCellRect(q, c))
}

func (g *Grid) CalibrationCellAreas() []Area {
	out := make([]Area, len(g.layout.CalibrationCells))
	for i, r := range g.layout.CalibrationCells {
		out[i] = g.area(r)
	}
	return out
}

func (g *Grid) InkBlackArea() Area {
	return g.area(g.layout.InkBlack)
}

func (g *Grid) PaperWhiteArea() Area {
	return g.area(g.layout.PaperWhite)
}

// BarcodeBitArea takes a 1-based bit position.
func (g *Grid) BarcodeBitArea(bit int) Area {
	return g.area(g.layout.BarcodeBitRect(bit))
}

func (g *Grid) BarcodeBitAreas() []Area {
	out := make([]Area, g.BarcodeBits())
	for i := range out {
		out[i] = g.BarcodeBitArea(i + 1)
	}
	return out
}

// RegSearchSide is the unclipped side of the search window in pixels.
func (g *Grid) RegSearchSide(step int) int {
	reg := g.layout.Registration
	return round((reg.SearchSide + float64(step)*reg.SearchStep) * g.ppuX)
}

func (g *Grid) RegMaxSearchSide() int {
	return round(g.layout.Registration.MaxSearchSide * g.ppuX)
}

// RegEdgeMargin is the edge margin in raw pixels along each axis.
func (g *Grid) RegEdgeMargin() (x, y float64) {
	e := g.layout.Registration.EdgeMargin
	return e * g.ppuX, e * g.ppuY
}

// NominalMark is where the mark center is printed, in raw pixels.
func (g *Grid) NominalMark(c Corner) (x, y float64) {
	px, py := g.layout.MarkCenter(c)
	return px * g.ppuX, py * g.ppuY
}

// RegSearchArea is the window searched for corner c at an expansion step,
// centered on the nominal mark and clipped to the scan.
func (g *Grid) RegSearchArea(c Corner, step int) Area {
	reg := g.layout.Registration
	side := reg.SearchSide + float64(step)*reg.SearchStep
	cx, cy := g.layout.MarkCenter(c)
	r := image.Rect(
		round((cx-side/2)*g.ppuX),
		round((cy-side/2)*g.ppuY),
		round((cx+side/2)*g.ppuX),
		round((cy+side/2)*g.ppuY),
	)
	r = r.Intersect(image.Rect(0, 0, g.width, g.height))
	return AreaOf(r)
}
