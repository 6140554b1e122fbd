package robot

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

// AxisKind distinguishes the two kinds of external axis.
type AxisKind int

// The supported external axis kinds.
const (
	Linear AxisKind = iota
	Rotational
)

func (k AxisKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Rotational:
		return "rotational"
	}
	return "unknown"
}

// ExternalAxis is an auxiliary degree of freedom outside the robot
// arm: a linear track or a rotational positioner. Linear values are
// length units, rotational values are degrees.
type ExternalAxis struct {
	Name    string
	Kind    AxisKind
	LogicID int
	Limits  Interval
	// MovesRobot marks the axis carrying the robot base. At most one
	// axis of a robot may set it.
	MovesRobot bool
	// Origin and Direction describe the guide line of a linear axis,
	// or the rotation axis of a rotational one.
	Origin    r3.Vec
	Direction r3.Vec
}

// Default is the value adopted when a target leaves the axis
// undefined.
func (a ExternalAxis) Default() float64 {
	return a.Limits.ClosestToZero()
}

// Motion returns the rigid motion applied by the axis at value. The
// value is clamped to the axis limits first.
func (a ExternalAxis) Motion(value float64) frame.Frame {
	v := a.Limits.Clamp(value)
	if a.Kind == Rotational {
		return frame.RotationAbout(a.Origin, a.Direction, v*math.Pi/180)
	}
	return frame.Translation(r3.Scale(v, r3.Unit(a.Direction)))
}

// AttachmentFrame returns the axis frame, origin on the axis and Z
// along its direction, posed at value.
func (a ExternalAxis) AttachmentFrame(value float64) frame.Frame {
	return a.Motion(value).Mul(frame.AlongZ(a.Origin, a.Direction))
}

// Project returns the linear axis value that moves the point from as
// close as the guide allows to the point to. Limits are not applied.
func (a ExternalAxis) Project(from, to r3.Vec) float64 {
	return r3.Dot(r3.Sub(to, from), r3.Unit(a.Direction))
}

// Displacement returns the signed axis value that carries the point
// from to the point to: a distance along the guide for a linear axis
// or an angle in degrees about the axis for a rotational one.
func (a ExternalAxis) Displacement(from, to r3.Vec) float64 {
	d := r3.Unit(a.Direction)
	if a.Kind == Linear {
		return r3.Dot(r3.Sub(to, from), d)
	}
	u := reject(r3.Sub(from, a.Origin), d)
	w := reject(r3.Sub(to, a.Origin), d)
	if r3.Norm(u) < 1e-12 || r3.Norm(w) < 1e-12 {
		return 0
	}
	return math.Atan2(r3.Dot(d, r3.Cross(u, w)), r3.Dot(u, w)) * 180 / math.Pi
}

// reject removes the component of v along the unit vector d.
func reject(v, d r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, d), d))
}
