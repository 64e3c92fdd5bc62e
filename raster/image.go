// Package raster holds scanned sheets as 8-bit gray pixels with an optional
// color overlay for diagnostics.
package raster

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	xidraw "golang.org/x/image/draw"
)

var ErrEmptyImage = errors.New("empty image")

// Image is a gray raster. Drawing goes to a separate overlay so pixel
// statistics never see it.
type Image struct {
	gray    *image.Gray
	overlay *image.NRGBA
}

// FromImage converts src to gray with its origin moved to (0,0).
func FromImage(src image.Image) (*Image, error) {
	if src == nil {
		return nil, ErrEmptyImage
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, ErrEmptyImage
	}
	dst := image.NewGray(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	xidraw.Draw(dst, dst.Bounds(), src, sb.Min, xidraw.Src)
	return &Image{gray: dst}, nil
}

// Load decodes any format imaging understands.
func Load(path string) (*Image, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return FromImage(src)
}

func (im *Image) Gray() *image.Gray {
	return im.gray
}

func (im *Image) Bounds() image.Rectangle {
	return im.gray.Bounds()
}

func (im *Image) Width() int  { return im.gray.Rect.Dx() }
func (im *Image) Height() int { return im.gray.Rect.Dy() }

// Crop returns the pixels of r shared with im, clipped to the image.
func (im *Image) Crop(r image.Rectangle) *image.Gray {
	return im.gray.SubImage(r.Intersect(im.gray.Rect)).(*image.Gray)
}

// Composite is the gray image with any overlay drawn on it.
func (im *Image) Composite() image.Image {
	if im.overlay != nil {
		return im.overlay
	}
	return im.gray
}

// Write saves the composite, the format follows the file extension.
func (im *Image) Write(path string) error {
	if err := imaging.Save(im.Composite(), path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (im *Image) Encode(w io.Writer, format imaging.Format) error {
	return imaging.Encode(w, im.Composite(), format)
}

// yBilinear samples g at continuous pixel coordinates where pixel (i,j)
// covers [i,i+1)x[j,j+1). Samples off the image clamp to the edge.
func yBilinear(g *image.Gray, x, y float64) uint8 {
	fx := x - 0.5
	fy := y - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	ax := fx - float64(x0)
	ay := fy - float64(y0)
	maxX := g.Rect.Max.X - 1
	maxY := g.Rect.Max.Y - 1
	at := func(px, py int) float64 {
		if px < 0 {
			px = 0
		} else if px > maxX {
			px = maxX
		}
		if py < 0 {
			py = 0
		} else if py > maxY {
			py = maxY
		}
		return float64(g.Pix[(py*g.Stride)+px])
	}
	top := at(x0, y0)*(1-ax) + at(x0+1, y0)*ax
	bot := at(x0, y0+1)*(1-ax) + at(x0+1, y0+1)*ax
	v := top*(1-ay) + bot*ay
	return uint8(math.Round(v))
}

// Stretch maps the quadrilateral src (tl, tr, br, bl) onto the corners of
// a new width x height image.
func (im *Image) Stretch(src [4]Point, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}
	w := float64(width)
	h := float64(height)
	corners := [4]Point{{0, 0}, {w, 0}, {w, h}, {0, h}}
	// sample backwards: for each output pixel find where it came from
	outToIn, err := FindHomography(corners, src)
	if err != nil {
		return nil, err
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < width; x++ {
			sx, sy := outToIn.Transform(float64(x)+0.5, float64(y)+0.5)
			row[x] = yBilinear(im.gray, sx, sy)
		}
	}
	return &Image{gray: out}, nil
}
