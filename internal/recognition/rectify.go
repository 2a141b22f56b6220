package recognition

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"page-recognizer/pkg/geometry"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ComputeHomography returns the projective transform mapping each src corner
// onto the dst corner with the same label. Coordinates are normalized before
// the 8x8 solve to keep the system well conditioned.
func ComputeHomography(src, dst CornerSet) (geometry.Homography, error) {
	if src.Degenerate() || dst.Degenerate() {
		return geometry.Homography{}, ErrDegenerateGeometry
	}

	srcNorm, srcT := normalizePoints(src)
	dstNorm, dstT := normalizePoints(dst)

	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y

		A.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		b.SetVec(2*i, u)
		A.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return geometry.Homography{}, fmt.Errorf("homography solve: %v: %w", err, ErrDegenerateGeometry)
	}

	hn := geometry.Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}

	dstInv, ok := dstT.Inverse()
	if !ok {
		return geometry.Homography{}, ErrDegenerateGeometry
	}
	H := dstInv.Compose(hn).Compose(srcT).Normalized()

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(H[i][j]) || math.IsInf(H[i][j], 0) {
				return geometry.Homography{}, ErrDegenerateGeometry
			}
		}
	}
	if math.Abs(H.Determinant()) < 1e-12 {
		return geometry.Homography{}, ErrDegenerateGeometry
	}
	return H, nil
}

// normalizePoints translates the corners to their centroid and scales them so
// the mean distance from it is sqrt(2). It returns the moved points and the
// transform that produced them.
func normalizePoints(c CornerSet) (CornerSet, geometry.Homography) {
	center := geometry.Centroid(c[:])
	var mean float64
	for _, p := range c {
		mean += p.Distance(center)
	}
	mean /= 4
	s := math.Sqrt2 / mean

	t := geometry.Scale(s, s).Compose(geometry.Translation(-center.X, -center.Y))
	var out CornerSet
	for i, p := range c {
		out[i] = p.Sub(center).Scale(s)
	}
	return out, t
}

// Warp resamples img through h into an image of the given size using
// bilinear interpolation. Pixels mapping outside img are black.
func Warp(img gocv.Mat, h geometry.Homography, size image.Point) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("warp: %w", ErrEmptyImage)
	}
	if size.X <= 0 || size.Y <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid warp size %v", size)
	}

	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, h[i][j])
		}
	}

	dst := gocv.NewMat()
	if err := gocv.WarpPerspectiveWithParams(img, &dst, m, size, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{}); err != nil {
		dst.Close()
		return gocv.NewMat(), fmt.Errorf("warp: %w", err)
	}
	if dst.Empty() {
		return dst, fmt.Errorf("warp: %w", ErrEmptyImage)
	}
	return dst, nil
}

// Rectify warps page so that its corners land on the template's corners,
// producing an image with the template's dimensions.
func Rectify(page gocv.Mat, corners CornerSet, t *TemplateRecord) (gocv.Mat, error) {
	h, err := ComputeHomography(corners, t.Corners)
	if err != nil {
		return gocv.NewMat(), err
	}
	return Warp(page, h, t.Size())
}
