package link

import (
	"gonum.org/v1/gonum/floats"
)

// Point is a coordinate vector in a dimensionless metric space.
// All points participating in a single frame pair must share the
// same dimensionality (typically 2 or 3).
type Point []float64

// NewPoint builds a point from the given coordinates.
func NewPoint(coords ...float64) Point {
	p := make(Point, len(coords))
	copy(p, coords)
	return p
}

// Clone returns a copy of the point.
func (p Point) Clone() Point {
	c := make(Point, len(p))
	copy(c, p)
	return c
}

// SquaredDistance returns the squared Euclidean distance between two points.
// Candidate costs are squared displacements, so the root is never extracted
// on the hot path.
func SquaredDistance(a, b Point) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// EuclideanDistance returns the Euclidean distance between two points.
func EuclideanDistance(a, b Point) float64 {
	return floats.Distance(a, b, 2)
}
