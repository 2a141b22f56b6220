package recognition

import (
	"fmt"
	"image"
	"math"

	"page-recognizer/pkg/geometry"

	"gocv.io/x/gocv"
)

// Corner indices within a CornerSet.
const (
	TopLeft = iota
	BottomLeft
	BottomRight
	TopRight
)

// CornerSet holds four page corners ordered top-left, bottom-left,
// bottom-right, top-right. Consecutive corners are adjacent on the page.
type CornerSet [4]geometry.Point2D

// NewCornerSet builds a CornerSet from exactly four points.
func NewCornerSet(points []geometry.Point2D) (CornerSet, error) {
	var cs CornerSet
	if len(points) != 4 {
		return cs, fmt.Errorf("got %d points: %w", len(points), ErrCornerCount)
	}
	copy(cs[:], points)
	return cs, nil
}

// Points returns the corners as a slice.
func (c CornerSet) Points() []geometry.Point2D {
	return append([]geometry.Point2D(nil), c[:]...)
}

// Rotate returns the set relabeled by k positions: corner i of the result is
// corner (i+k) mod 4 of c.
func (c CornerSet) Rotate(k int) CornerSet {
	k = ((k % 4) + 4) % 4
	var out CornerSet
	for i := range out {
		out[i] = c[(i+k)%4]
	}
	return out
}

// Area returns the unsigned area of the quadrilateral.
func (c CornerSet) Area() float64 {
	return math.Abs(geometry.PolygonArea(c[:]))
}

// Bounds returns the axis-aligned bounding box of the corners.
func (c CornerSet) Bounds() geometry.Rect {
	return geometry.BoundingBox(c[:])
}

// Degenerate reports whether two corners coincide or three are collinear.
func (c CornerSet) Degenerate() bool {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if c[i].Distance(c[j]) < 0.5 {
				return true
			}
		}
	}
	for i := 0; i < 4; i++ {
		if geometry.Collinear(c[i], c[(i+1)%4], c[(i+2)%4], 1.0) {
			return true
		}
	}
	return false
}

// Corners found in a mask must span at least these fractions of the mask:
// the quad area relative to the mask area and every side relative to the
// shorter mask dimension. A single marker blob, or two, fails them.
const (
	minQuadAreaFraction = 0.01
	minQuadSideFraction = 0.1
)

// shortestSide returns the length of the shortest edge of the quadrilateral.
func (c CornerSet) shortestSide() float64 {
	shortest := math.Inf(1)
	for i := range c {
		shortest = math.Min(shortest, c[i].Distance(c[(i+1)%4]))
	}
	return shortest
}

// tooSmall reports whether the corners cover too little of a rows x cols mask.
func (c CornerSet) tooSmall(rows, cols int) bool {
	if c.Area() < minQuadAreaFraction*float64(rows*cols) {
		return true
	}
	return c.shortestSide() < minQuadSideFraction*float64(min(rows, cols))
}

// Extrema collects the extreme foreground positions of a binary mask in one
// row-major scan. Every running extremum is replaced only by a strictly more
// extreme pixel, so ties keep the first pixel seen.
type Extrema struct {
	Count int

	MinX, MaxX, MinY, MaxY int

	// Cardinal extremes: smallest y, smallest x, largest y, largest x.
	Top, Left, Bottom, Right image.Point

	// Diagonal extremes: smallest x+y, smallest x-y, largest x+y, largest x-y.
	UpperLeft, LowerLeft, LowerRight, UpperRight image.Point
}

func (e *Extrema) observe(x, y int) {
	p := image.Point{X: x, Y: y}
	if e.Count == 0 {
		e.MinX, e.MaxX, e.MinY, e.MaxY = x, x, y, y
		e.Top, e.Left, e.Bottom, e.Right = p, p, p, p
		e.UpperLeft, e.LowerLeft, e.LowerRight, e.UpperRight = p, p, p, p
		e.Count = 1
		return
	}
	e.Count++

	if x < e.MinX {
		e.MinX = x
		e.Left = p
	}
	if x > e.MaxX {
		e.MaxX = x
		e.Right = p
	}
	if y < e.MinY {
		e.MinY = y
		e.Top = p
	}
	if y > e.MaxY {
		e.MaxY = y
		e.Bottom = p
	}

	sum, diff := x+y, x-y
	if sum < e.UpperLeft.X+e.UpperLeft.Y {
		e.UpperLeft = p
	}
	if sum > e.LowerRight.X+e.LowerRight.Y {
		e.LowerRight = p
	}
	if diff < e.LowerLeft.X-e.LowerLeft.Y {
		e.LowerLeft = p
	}
	if diff > e.UpperRight.X-e.UpperRight.Y {
		e.UpperRight = p
	}
}

// ScanForeground scans a single-channel 8-bit mask and returns the extremes
// of its non-zero pixels.
func ScanForeground(mask gocv.Mat) (Extrema, error) {
	var e Extrema
	if mask.Empty() {
		return e, fmt.Errorf("corner scan: %w", ErrEmptyImage)
	}
	if mask.Type() != gocv.MatTypeCV8UC1 {
		return e, ErrMaskFormat
	}

	rows, cols := mask.Rows(), mask.Cols()
	data := mask.ToBytes()
	if len(data) < rows*cols {
		return e, fmt.Errorf("mask data holds %d bytes, want %d", len(data), rows*cols)
	}

	for y := 0; y < rows; y++ {
		row := data[y*cols : (y+1)*cols]
		for x, v := range row {
			if v != 0 {
				e.observe(x, y)
			}
		}
	}
	return e, nil
}

// CornerPolicy turns scan extremes into labeled corners.
type CornerPolicy interface {
	Corners(e Extrema) (CornerSet, bool)
	Name() string
}

// ExtremePointPolicy labels free-form quadrilaterals such as markers on a
// photographed page. The cardinal labeling (top, left, bottom and right-most
// pixels) is used unless the diagonal labeling encloses a larger area, which
// happens when the page is close to axis-aligned and cardinal extremes of
// neighboring markers coincide.
type ExtremePointPolicy struct{}

func (ExtremePointPolicy) Name() string { return "extreme-point" }

func (ExtremePointPolicy) Corners(e Extrema) (CornerSet, bool) {
	if e.Count == 0 {
		return CornerSet{}, false
	}
	cardinal := cornerSetOf(e.Top, e.Left, e.Bottom, e.Right)
	diagonal := cornerSetOf(e.UpperLeft, e.LowerLeft, e.LowerRight, e.UpperRight)
	if diagonal.Area() > cardinal.Area() {
		return diagonal, true
	}
	return cardinal, true
}

// BoundingBoxPolicy labels the corners of the axis-aligned bounding box of
// the foreground. Templates are upright so their markers sit at the box corners.
type BoundingBoxPolicy struct{}

func (BoundingBoxPolicy) Name() string { return "bounding-box" }

func (BoundingBoxPolicy) Corners(e Extrema) (CornerSet, bool) {
	if e.Count == 0 {
		return CornerSet{}, false
	}
	return cornerSetOf(
		image.Point{X: e.MinX, Y: e.MinY},
		image.Point{X: e.MinX, Y: e.MaxY},
		image.Point{X: e.MaxX, Y: e.MaxY},
		image.Point{X: e.MaxX, Y: e.MinY},
	), true
}

func cornerSetOf(tl, bl, br, tr image.Point) CornerSet {
	return CornerSet{
		TopLeft:     geometry.FromImagePoint(tl),
		BottomLeft:  geometry.FromImagePoint(bl),
		BottomRight: geometry.FromImagePoint(br),
		TopRight:    geometry.FromImagePoint(tr),
	}
}

// LocateCorners scans mask and labels its corners with policy. It returns
// ErrNoCorners for an empty mask and ErrDegenerateGeometry, together with the
// labeled corners, when they do not span a quadrilateral or cover too small
// a part of the mask.
func LocateCorners(mask gocv.Mat, policy CornerPolicy) (CornerSet, error) {
	e, err := ScanForeground(mask)
	if err != nil {
		return CornerSet{}, err
	}
	cs, ok := policy.Corners(e)
	if !ok {
		return CornerSet{}, ErrNoCorners
	}
	if cs.Degenerate() {
		return cs, fmt.Errorf("%s corners %v: %w", policy.Name(), cs, ErrDegenerateGeometry)
	}
	if cs.tooSmall(mask.Rows(), mask.Cols()) {
		return cs, fmt.Errorf("%s corners %v cover too little of %dx%d: %w",
			policy.Name(), cs, mask.Cols(), mask.Rows(), ErrDegenerateGeometry)
	}
	return cs, nil
}
