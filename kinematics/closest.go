package kinematics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"zappem.net/pub/math/geom"

	"zappem.net/pub/kinematics/armpath/robot"
)

// Closest is the result of a closest to reference search.
type Closest struct {
	Position robot.RobotJointPosition
	// Index is the raw solution the position was derived from.
	Index int
	// Distance is the summed absolute axis difference to the
	// reference, in degrees.
	Distance float64
}

// turns lists the axis 4 and 6 aliases tried, unshifted first so that
// ties keep the raw value.
var turns = []float64{0, -360, 360}

// ClosestToReference picks, over all raw solutions and their full turn
// aliases on axes 4 and 6, the joint position within the axis limits
// nearest to ref. ErrNoSolution is returned when no combination fits
// the limits.
func (s *Solver) ClosestToReference(sols [8]Solution, ref robot.RobotJointPosition) (Closest, error) {
	best := Closest{Index: -1, Distance: math.Inf(1)}
	for i, sol := range sols {
		for _, d4 := range turns {
			for _, d6 := range turns {
				q := sol.Position
				q[3] += d4
				q[5] += d6
				if !s.withinLimits(q) {
					continue
				}
				if d := floats.Distance(q.Slice(), ref.Slice(), 1); d < best.Distance {
					best = Closest{Position: q, Index: i, Distance: d}
				}
			}
		}
	}
	if best.Index < 0 {
		return best, ErrNoSolution
	}
	return best, nil
}

func (s *Solver) withinLimits(q robot.RobotJointPosition) bool {
	for i, j := range s.robot.Joints {
		if !j.Limits.Contains(q[i]) {
			return false
		}
	}
	return true
}

// Configuration returns the configuration index of the raw inverse
// kinematics branch that contains q. The boolean is false when q sits
// on a branch boundary (shoulder, elbow or wrist singularity), where
// the index is not unique.
func (s *Solver) Configuration(q robot.RobotJointPosition) (int, bool) {
	p := s.p
	var a [6]geom.Angle
	for i := range a {
		a[i] = s.canonical(i, q[i])
	}

	idx := 0
	ok := true
	// Radial distance of the wrist center from axis 1 in the arm plane.
	psi := geom.Angle(math.Atan2(p.a2, p.c3))
	k := math.Hypot(p.a2, p.c3)
	x := p.a1 + p.c2*a[1].S() + k*(a[1]+a[2]+psi).S()
	if x < 0 {
		idx |= ShoulderBack
	}
	ok = ok && !geom.Zeroish(x)

	g := robot.NormalizeAngle(float64(a[2]+psi) * 180 / math.Pi)
	if (g < 0) != (idx&ShoulderBack != 0) {
		idx |= ElbowDown
	}
	ok = ok && math.Abs(g) > geometryTolerance && 180-math.Abs(g) > geometryTolerance

	w := robot.NormalizeAngle(float64(a[4]) * 180 / math.Pi)
	if w < 0 {
		idx |= WristFlipped
	}
	ok = ok && math.Abs(w) > geometryTolerance && 180-math.Abs(w) > geometryTolerance
	return idx, ok
}
