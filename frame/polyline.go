package frame

import "gonum.org/v1/gonum/spatial/r3"

// Polyline is a path curve through a sequence of points.
type Polyline []r3.Vec

// NewPolyline returns the curve through pts with consecutive
// duplicate points (closer than tol) removed. Fewer than two distinct
// points yield a nil curve.
func NewPolyline(pts []r3.Vec, tol float64) Polyline {
	var out Polyline
	for _, p := range pts {
		if n := len(out); n > 0 && r3.Norm(r3.Sub(p, out[n-1])) <= tol {
			continue
		}
		out = append(out, p)
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

// Length returns the arc length of the curve.
func (c Polyline) Length() float64 {
	var l float64
	for i := 1; i < len(c); i++ {
		l += r3.Norm(r3.Sub(c[i], c[i-1]))
	}
	return l
}
