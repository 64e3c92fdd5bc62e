package draw

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	xidraw "golang.org/x/image/draw"
	ximath "golang.org/x/image/math/f64"

	"github.com/brianolson/omrsheet/internal/logger"
)

// Perturbation is the rotation and scale applied to a page.
type Perturbation struct {
	Degrees float64 `json:"degrees"`
	Scale   float64 `json:"scale"`
}

// Perturb rotates orig by up to +/- maxDegrees and scales it by up to
// +/- maxScale (0.2 is 20%).
func Perturb(orig image.Image, rng *rand.Rand, maxDegrees, maxScale float64) (*image.NRGBA, Perturbation) {
	p := Perturbation{
		Degrees: (rng.Float64()*2 - 1) * maxDegrees,
		Scale:   1 + (rng.Float64()*2-1)*maxScale,
	}
	return p.Apply(orig), p
}

// Apply rotates about the top left corner, translates so nothing falls off
// the top or left, then scales. Uncovered pixels are white.
func (p Perturbation) Apply(orig image.Image) *image.NRGBA {
	th := p.Degrees * math.Pi / 180
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	orect := orig.Bounds()
	w := float64(orect.Dx())
	h := float64(orect.Dy())
	var dx, dy, extraWidth, extraHeight float64
	if th < 0 {
		// translate to allow for rotation above old top
		dy = -math.Sin(th) * w
		extraHeight = dy - ((1 - math.Cos(th)) * h)
		extraWidth = -math.Sin(th) * h
	} else {
		dx = math.Sin(th) * h
		extraWidth = dx - ((1 - math.Cos(th)) * w)
		extraHeight = math.Sin(th) * w
	}
	tr := ximath.Aff3{
		math.Cos(th) * scale, -math.Sin(th) * scale, dx * scale,
		math.Sin(th) * scale, math.Cos(th) * scale, dy * scale,
	}
	logger.WithField("degrees", p.Degrees).WithField("scale", scale).Debug("perturb")
	db := image.Rect(0, 0, int(scale*(w+extraWidth)), int(scale*(h+extraHeight)))
	out := image.NewNRGBA(db)
	xidraw.Draw(out, db, image.NewUniform(color.NRGBA{255, 255, 255, 255}), image.Point{}, xidraw.Src)
	// Transform takes src->dst with src at its own origin
	src := orig
	if orect.Min != (image.Point{}) {
		tmp := image.NewNRGBA(image.Rect(0, 0, orect.Dx(), orect.Dy()))
		xidraw.Draw(tmp, tmp.Rect, orig, orect.Min, xidraw.Src)
		src = tmp
	}
	xidraw.BiLinear.Transform(out, tr, src, src.Bounds(), xidraw.Src, nil)
	return out
}
