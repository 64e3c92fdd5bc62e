package raster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MatrixTransform is a 3x3 row-major projective transform.
type MatrixTransform struct {
	mat []float64
}

func (mt MatrixTransform) TransformInt(x, y int) (int, int) {
	ox, oy := mt.Transform(float64(x), float64(y))
	return int(ox), int(oy)
}

func (mt MatrixTransform) Transform(x, y float64) (float64, float64) {
	ox := (x * mt.mat[0]) + (y * mt.mat[1]) + mt.mat[2]
	oy := (x * mt.mat[3]) + (y * mt.mat[4]) + mt.mat[5]
	ow := (x * mt.mat[6]) + (y * mt.mat[7]) + mt.mat[8]
	ox /= ow
	oy /= ow
	return ox, oy
}

func (mt MatrixTransform) Matrix() []float64 {
	return append([]float64(nil), mt.mat...)
}

func extent(pts [4]Point) float64 {
	s := 0.0
	for _, p := range pts {
		s = math.Max(s, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if s == 0 {
		return 1
	}
	return s
}

// FindHomography returns the projective transform taking each src point
// onto the dst point of the same index.
func FindHomography(src, dst [4]Point) (MatrixTransform, error) {
	// solve on coordinates scaled into [-1,1] to keep the system well conditioned
	sS := extent(src)
	sD := extent(dst)

	// x' = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	// y' = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X/sS, src[i].Y/sS
		xp, yp := dst[i].X/sD, dst[i].Y/sD

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -x*xp)
		A.Set(i*2, 7, -y*xp)
		B.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -x*yp)
		A.Set(i*2+1, 7, -y*yp)
		B.SetVec(i*2+1, yp)
	}
	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return MatrixTransform{}, fmt.Errorf("degenerate quadrilateral %v: %w", src, err)
	}
	p := func(i int) float64 { return params.AtVec(i) }
	// undo the scaling: H = diag(sD,sD,1) * H' * diag(1/sS,1/sS,1)
	h := []float64{
		sD * p(0) / sS, sD * p(1) / sS, sD * p(2),
		sD * p(3) / sS, sD * p(4) / sS, sD * p(5),
		p(6) / sS, p(7) / sS, 1,
	}
	return MatrixTransform{h}, nil
}
