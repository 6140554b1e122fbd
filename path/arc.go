package path

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

// Arc geometry limits. Violations are reported as warnings.
const (
	minArcDistance = 0.1
	minChordAngle  = 1.0   // degrees
	maxSweep       = 240.0 // degrees
)

// arc is a circle segment from a start point through a via point to
// an end point.
type arc struct {
	center r3.Vec
	normal r3.Vec
	radius float64
	// sweep is the angle from start to end, via the angle from start
	// to the through point, both in radians about normal.
	sweep, via float64
	start      r3.Vec
}

// fitArc constructs the circle through p0, p1 and p2, traversed in
// that order. It fails only when the points do not span a circle.
func fitArc(p0, p1, p2 r3.Vec) (arc, error) {
	a := r3.Sub(p0, p2)
	b := r3.Sub(p1, p2)
	axb := r3.Cross(a, b)
	d := r3.Norm2(axb)
	if d < 1e-18 || d < 1e-12*r3.Norm2(a)*r3.Norm2(b) {
		return arc{}, errors.Wrapf(ErrArc, "points %v, %v and %v are colinear or coincident", p0, p1, p2)
	}
	num := r3.Cross(r3.Sub(r3.Scale(r3.Norm2(a), b), r3.Scale(r3.Norm2(b), a)), axb)
	c := arc{
		center: r3.Add(p2, r3.Scale(1/(2*d), num)),
		normal: r3.Unit(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p1))),
		start:  p0,
	}
	c.radius = r3.Norm(r3.Sub(p0, c.center))
	c.via = c.angle(p1)
	c.sweep = c.angle(p2)
	return c, nil
}

// angle returns the angle in [0,2pi) from the start point to p about
// the arc normal.
func (c arc) angle(p r3.Vec) float64 {
	u := r3.Sub(c.start, c.center)
	w := r3.Sub(p, c.center)
	t := math.Atan2(r3.Dot(c.normal, r3.Cross(u, w)), r3.Dot(u, w))
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

// point returns the arc point a fraction s of the way along the arc.
func (c arc) point(s float64) r3.Vec {
	return frame.RotationAbout(c.center, c.normal, s*c.sweep).Apply(c.start)
}

// arcWarnings lists the geometric problems of the arc through p0, p1
// and p2 that make the programmed circle unreliable.
func arcWarnings(name string, p0, p1, p2 r3.Vec) []string {
	var ws []string
	for _, pair := range []struct {
		what string
		a, b r3.Vec
	}{
		{"start and circle point", p0, p1},
		{"circle point and end", p1, p2},
		{"start and end", p0, p2},
	} {
		if r3.Norm(r3.Sub(pair.a, pair.b)) < minArcDistance {
			ws = append(ws, fmt.Sprintf("circular move %q: %s are closer than %g", name, pair.what, minArcDistance))
		}
	}
	c1 := r3.Sub(p1, p0)
	c2 := r3.Sub(p2, p1)
	if n1, n2 := r3.Norm(c1), r3.Norm(c2); n1 > 0 && n2 > 0 {
		ang := math.Atan2(r3.Norm(r3.Cross(c1, c2)), r3.Dot(c1, c2)) * 180 / math.Pi
		if ang < minChordAngle {
			ws = append(ws, fmt.Sprintf("circular move %q: chords subtend %.3f degrees, less than %g", name, ang, minChordAngle))
		}
	}
	if c, err := fitArc(p0, p1, p2); err == nil {
		if sw := c.sweep * 180 / math.Pi; sw > maxSweep {
			ws = append(ws, fmt.Sprintf("circular move %q: sweep of %.1f degrees exceeds %g", name, sw, maxSweep))
		}
	}
	return ws
}
