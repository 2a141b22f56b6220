// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromImagePoint converts an integer pixel position to Point2D.
func FromImagePoint(p image.Point) Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// ImagePoint rounds the point to the nearest pixel position.
func (p Point2D) ImagePoint() image.Point {
	return image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Homography represents a 3x3 projective transform in row-major order.
// Points are mapped as (x', y', w) = H * (x, y, 1), then divided by w.
type Homography [3][3]float64

// Translation returns a translation transform.
func Translation(tx, ty float64) Homography {
	return Homography{{1, 0, tx}, {0, 1, ty}, {0, 0, 1}}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) Homography {
	return Homography{{sx, 0, 0}, {0, sy, 0}, {0, 0, 1}}
}

// Apply applies the transform to a point. The second result is false when the
// point maps to infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}, true
}

// Compose returns this transform composed with another (this * other),
// i.e. other is applied first.
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += h[i][k] * other[k][j]
			}
		}
	}
	return out
}

// Determinant returns the determinant of the 3x3 matrix.
func (h Homography) Determinant() float64 {
	return h[0][0]*(h[1][1]*h[2][2]-h[1][2]*h[2][1]) -
		h[0][1]*(h[1][0]*h[2][2]-h[1][2]*h[2][0]) +
		h[0][2]*(h[1][0]*h[2][1]-h[1][1]*h[2][0])
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	det := h.Determinant()
	if math.Abs(det) < 1e-12 {
		return Homography{}, false
	}

	invDet := 1.0 / det
	return Homography{
		{
			(h[1][1]*h[2][2] - h[1][2]*h[2][1]) * invDet,
			(h[0][2]*h[2][1] - h[0][1]*h[2][2]) * invDet,
			(h[0][1]*h[1][2] - h[0][2]*h[1][1]) * invDet,
		},
		{
			(h[1][2]*h[2][0] - h[1][0]*h[2][2]) * invDet,
			(h[0][0]*h[2][2] - h[0][2]*h[2][0]) * invDet,
			(h[0][2]*h[1][0] - h[0][0]*h[1][2]) * invDet,
		},
		{
			(h[1][0]*h[2][1] - h[1][1]*h[2][0]) * invDet,
			(h[0][1]*h[2][0] - h[0][0]*h[2][1]) * invDet,
			(h[0][0]*h[1][1] - h[0][1]*h[1][0]) * invDet,
		},
	}, true
}

// Normalized returns the transform scaled so that h[2][2] == 1.
// Transforms with h[2][2] == 0 are returned unchanged.
func (h Homography) Normalized() Homography {
	if h[2][2] == 0 {
		return h
	}
	s := 1 / h[2][2]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] *= s
		}
	}
	return h
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
