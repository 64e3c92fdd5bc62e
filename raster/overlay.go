package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

var (
	HighlightColor = color.NRGBA{0, 200, 0, 96}
	CellColor      = color.NRGBA{0, 90, 255, 96}
	OutlineColor   = color.NRGBA{255, 0, 0, 255}
	JoinColor      = color.NRGBA{255, 0, 255, 255}
)

func (im *Image) canvas() *image.NRGBA {
	if im.overlay == nil {
		im.overlay = imaging.Clone(im.gray)
	}
	return im.overlay
}

// HasOverlay reports whether anything was drawn on im.
func (im *Image) HasOverlay() bool {
	return im.overlay != nil
}

// ClearOverlay drops all drawing.
func (im *Image) ClearOverlay() {
	im.overlay = nil
}

// Highlight blends a translucent fill over each rectangle.
func (im *Image) Highlight(rs []image.Rectangle, c color.NRGBA) {
	cv := im.canvas()
	src := image.NewUniform(c)
	for _, r := range rs {
		draw.Draw(cv, r.Intersect(cv.Rect), src, image.Point{}, draw.Over)
	}
}

// Outline draws a 2px border just inside each rectangle.
func (im *Image) Outline(rs []image.Rectangle, c color.NRGBA) {
	cv := im.canvas()
	src := image.NewUniform(c)
	const t = 2
	for _, r := range rs {
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
			image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
			image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(cv, e.Intersect(r).Intersect(cv.Rect), src, image.Point{}, draw.Over)
		}
	}
}

// Line draws a 3px wide segment.
func (im *Image) Line(a, b Point, c color.NRGBA) {
	cv := im.canvas()
	dx := b.X - a.X
	dy := b.Y - a.Y
	n := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if n == 0 {
		n = 1
	}
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		x := int(a.X + dx*f)
		y := int(a.Y + dy*f)
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				if image.Pt(x+ox, y+oy).In(cv.Rect) {
					cv.SetNRGBA(x+ox, y+oy, c)
				}
			}
		}
	}
}

// Join connects pts in order and closes the polygon.
func (im *Image) Join(pts []Point, c color.NRGBA) {
	for i := range pts {
		im.Line(pts[i], pts[(i+1)%len(pts)], c)
	}
}

// Cross marks each point with a small x.
func (im *Image) Cross(pts []Point, size float64, c color.NRGBA) {
	for _, p := range pts {
		im.Line(Point{p.X - size, p.Y - size}, Point{p.X + size, p.Y + size}, c)
		im.Line(Point{p.X - size, p.Y + size}, Point{p.X + size, p.Y - size}, c)
	}
}
