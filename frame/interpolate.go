package frame

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Slerp spherically interpolates between the orientations a and b
// along the shorter arc. t=0 yields a and t=1 yields b.
func Slerp(a, b r3.Rotation, t float64) r3.Rotation {
	qa := quat.Number(normalize(a))
	qb := quat.Number(normalize(b))
	d := dot(r3.Rotation(qa), r3.Rotation(qb))
	if d < 0 {
		qb = quat.Scale(-1, qb)
		d = -d
	}
	if d > 1-1e-12 {
		// Nearly parallel, a normalized lerp is exact enough.
		q := quat.Add(quat.Scale(1-t, qa), quat.Scale(t, qb))
		return normalize(r3.Rotation(q))
	}
	theta := math.Acos(d)
	s := math.Sin(theta)
	q := quat.Add(
		quat.Scale(math.Sin((1-t)*theta)/s, qa),
		quat.Scale(math.Sin(t*theta)/s, qb),
	)
	return normalize(r3.Rotation(q))
}

// Lerp linearly interpolates between the points a and b.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Interpolate blends two frames: the origin moves linearly and the
// orientation follows Slerp.
func Interpolate(a, b Frame, t float64) Frame {
	return Frame{
		Origin:   Lerp(a.Origin, b.Origin, t),
		Rotation: Slerp(a.rot(), b.rot(), t),
	}
}

// Rotate returns r turned by angle radians about axis, the rotation
// being applied after r.
func Rotate(r r3.Rotation, angle float64, axis r3.Vec) r3.Rotation {
	q := quat.Mul(quat.Number(r3.NewRotation(angle, axis)), quat.Number(normalize(r)))
	return normalize(r3.Rotation(q))
}
