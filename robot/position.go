package robot

import (
	"fmt"
	"math"
	"strings"
)

// Undefined marks an external axis value that has not been set. An
// undefined value is replaced by the axis default when it is used.
const Undefined = 9e9

// RobotJointPosition holds the values of the six internal robot
// axes, in degrees. Computed solutions are wrapped into (-180, 180];
// see Normalized.
type RobotJointPosition [6]float64

// Add returns the component-wise sum p+q.
func (p RobotJointPosition) Add(q RobotJointPosition) RobotJointPosition {
	for i := range p {
		p[i] += q[i]
	}
	return p
}

// Sub returns the component-wise difference p-q.
func (p RobotJointPosition) Sub(q RobotJointPosition) RobotJointPosition {
	for i := range p {
		p[i] -= q[i]
	}
	return p
}

// Scale returns p with every axis multiplied by f.
func (p RobotJointPosition) Scale(f float64) RobotJointPosition {
	for i := range p {
		p[i] *= f
	}
	return p
}

// Lerp returns the position a fraction t of the way from p to q,
// interpolating every axis independently.
func (p RobotJointPosition) Lerp(q RobotJointPosition, t float64) RobotJointPosition {
	return p.Add(q.Sub(p).Scale(t))
}

// Normalized returns p with every axis wrapped into (-180,180].
func (p RobotJointPosition) Normalized() RobotJointPosition {
	for i := range p {
		p[i] = NormalizeAngle(p[i])
	}
	return p
}

// Slice returns the axis values as a slice.
func (p RobotJointPosition) Slice() []float64 {
	return p[:]
}

func (p RobotJointPosition) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NormalizeAngle wraps an angle in degrees into (-180,180].
func NormalizeAngle(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r <= -180 {
		r += 360
	} else if r > 180 {
		r -= 360
	}
	return r
}

// ExternalJointPosition holds up to six logical external axis
// values. Unset entries hold Undefined.
type ExternalJointPosition [6]float64

// NewExternalJointPosition returns a position with the given leading
// values and all remaining axes Undefined.
func NewExternalJointPosition(vs ...float64) ExternalJointPosition {
	var e ExternalJointPosition
	for i := range e {
		e[i] = Undefined
		if i < len(vs) {
			e[i] = vs[i]
		}
	}
	return e
}

// IsDefined reports whether logical axis i carries a value.
func (e ExternalJointPosition) IsDefined(i int) bool {
	return i >= 0 && i < len(e) && e[i] != Undefined
}

func (e ExternalJointPosition) combine(f ExternalJointPosition, op func(a, b float64) float64) ExternalJointPosition {
	for i := range e {
		if e[i] == Undefined || f[i] == Undefined {
			e[i] = Undefined
			continue
		}
		e[i] = op(e[i], f[i])
	}
	return e
}

// Add returns e+f. An axis undefined in either operand stays
// undefined.
func (e ExternalJointPosition) Add(f ExternalJointPosition) ExternalJointPosition {
	return e.combine(f, func(a, b float64) float64 { return a + b })
}

// Sub returns e-f. An axis undefined in either operand stays
// undefined.
func (e ExternalJointPosition) Sub(f ExternalJointPosition) ExternalJointPosition {
	return e.combine(f, func(a, b float64) float64 { return a - b })
}

// Scale multiplies every defined axis by s.
func (e ExternalJointPosition) Scale(s float64) ExternalJointPosition {
	for i := range e {
		if e[i] != Undefined {
			e[i] *= s
		}
	}
	return e
}

// Lerp interpolates every axis defined in both e and f; axes
// undefined on either side stay undefined.
func (e ExternalJointPosition) Lerp(f ExternalJointPosition, t float64) ExternalJointPosition {
	return e.combine(f, func(a, b float64) float64 { return a + t*(b-a) })
}

// Interval is a closed range of permitted axis values.
type Interval struct {
	Min, Max float64
}

// limitTolerance absorbs rounding when testing values that sit on a
// limit.
const limitTolerance = 1e-9

// Contains reports whether v lies within the interval.
func (i Interval) Contains(v float64) bool {
	return v >= i.Min-limitTolerance && v <= i.Max+limitTolerance
}

// Clamp returns v forced into the interval.
func (i Interval) Clamp(v float64) float64 {
	return math.Max(i.Min, math.Min(i.Max, v))
}

// ClosestToZero returns the value of the interval nearest to zero:
// zero itself when the interval spans it, otherwise the nearer limit.
func (i Interval) ClosestToZero() float64 {
	switch {
	case i.Contains(0):
		return 0
	case math.Abs(i.Min) < math.Abs(i.Max):
		return i.Min
	default:
		return i.Max
	}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Min, i.Max)
}
