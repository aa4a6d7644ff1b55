// Package tangent provides straight-line geometry for tangent constructions
// on measured curves, such as locating the onset where two tangents cross.
package tangent

import (
	"errors"
	"math"
)

// ErrParallel is returned when two lines never intersect
var ErrParallel = errors.New("lines are parallel")

// ErrVertical is returned when two points share an x coordinate
var ErrVertical = errors.New("points define a vertical line")

// Point is a 2D point
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is y = Slope·x + Intercept
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// LineThrough returns the line through p with the given slope
func LineThrough(p Point, slope float64) Line {
	return Line{Slope: slope, Intercept: p.Y - slope*p.X}
}

// LineFromPoints returns the line through p and q
func LineFromPoints(p, q Point) (Line, error) {
	if p.X == q.X {
		return Line{}, ErrVertical
	}
	return LineThrough(p, (q.Y-p.Y)/(q.X-p.X)), nil
}

// Eval returns y at x
func (l Line) Eval(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// Intersect returns the point where l and other cross
func (l Line) Intersect(other Line) (Point, error) {
	ds := l.Slope - other.Slope
	if ds == 0 || math.IsNaN(ds) {
		return Point{}, ErrParallel
	}
	x := (other.Intercept - l.Intercept) / ds
	return Point{X: x, Y: l.Eval(x)}, nil
}
