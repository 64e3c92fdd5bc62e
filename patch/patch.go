// Package patch measures rectangular regions of a gray scan.
package patch

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MinContrast is the smallest max-min spread of a window that can hold a
// dark region. Flat windows (blank paper, solid ink) have no centroid.
const MinContrast = 64

// MinDarkPixels is the smallest dark component reported by DarkCentroid.
const MinDarkPixels = 4

// Average returns the mean intensity of r clipped to the image, NaN if the
// clipped region is empty.
func Average(img *image.Gray, r image.Rectangle) float64 {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return math.NaN()
	}
	values := make([]float64, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			values = append(values, float64(row[x]))
		}
	}
	return stat.Mean(values, nil)
}

func histogram(img *image.Gray, r image.Rectangle) (hist [256]uint, lo, hi uint8) {
	lo = 255
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			v := row[x]
			hist[v]++
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return
}

// Threshold returns the Otsu threshold of r; pixels below it are dark.
func Threshold(img *image.Gray, r image.Rectangle) uint8 {
	r = r.Intersect(img.Bounds())
	hist, _, _ := histogram(img, r)
	return otsuThreshold(hist[:])
}

// Binarize renders r as pure black and white at its Otsu threshold.
func Binarize(img *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	thresh := Threshold(img, r)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if img.GrayAt(r.Min.X+x, r.Min.Y+y).Y >= thresh {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}

// DarkCentroid binarizes r at its Otsu threshold and returns the centroid
// of the largest 4-connected dark component, relative to r.Min. ok is false
// when r lacks contrast or holds no component of MinDarkPixels.
func DarkCentroid(img *image.Gray, r image.Rectangle) (cx, cy float64, ok bool) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return 0, 0, false
	}
	hist, lo, hi := histogram(img, r)
	if int(hi)-int(lo) < MinContrast {
		return 0, 0, false
	}
	thresh := otsuThreshold(hist[:])

	w, h := r.Dx(), r.Dy()
	dark := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y+r.Min.Y):]
		for x := 0; x < w; x++ {
			dark[y*w+x] = row[x] < thresh
		}
	}

	seen := make([]bool, w*h)
	queue := make([]int, 0, 64)
	bestCount := 0
	var bestSumX, bestSumY float64
	for start := range dark {
		if !dark[start] || seen[start] {
			continue
		}
		count := 0
		var sumX, sumY float64
		seen[start] = true
		queue = append(queue[:0], start)
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			px, py := p%w, p/w
			count++
			sumX += float64(px)
			sumY += float64(py)
			if px > 0 && dark[p-1] && !seen[p-1] {
				seen[p-1] = true
				queue = append(queue, p-1)
			}
			if px < w-1 && dark[p+1] && !seen[p+1] {
				seen[p+1] = true
				queue = append(queue, p+1)
			}
			if py > 0 && dark[p-w] && !seen[p-w] {
				seen[p-w] = true
				queue = append(queue, p-w)
			}
			if py < h-1 && dark[p+w] && !seen[p+w] {
				seen[p+w] = true
				queue = append(queue, p+w)
			}
		}
		if count > bestCount {
			bestCount = count
			bestSumX = sumX
			bestSumY = sumY
		}
	}
	if bestCount < MinDarkPixels {
		return 0, 0, false
	}
	// pixel centers sit at +0.5
	cx = bestSumX/float64(bestCount) + 0.5
	cy = bestSumY/float64(bestCount) + 0.5
	return cx, cy, true
}
