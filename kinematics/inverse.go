package kinematics

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"zappem.net/pub/math/geom"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Configuration index bits. The eight raw solutions are stored at the
// index formed by or-ing the bits of their branch.
const (
	// WristFlipped selects the branch with a negative canonical axis 5.
	WristFlipped = 1 << iota
	// ElbowDown selects the lower of the two elbow positions.
	ElbowDown
	// ShoulderBack selects the branch with the wrist center behind
	// axis 1.
	ShoulderBack
)

// Solution is one raw inverse kinematics branch.
type Solution struct {
	Position      robot.RobotJointPosition
	WristSingular bool
	ElbowSingular bool
}

// Messages describes the singularities of the solution for the
// target name.
func (s Solution) Messages(name string) []string {
	var msgs []string
	if s.WristSingular {
		msgs = append(msgs, fmt.Sprintf("target %q is close to a wrist singularity", name))
	}
	if s.ElbowSingular {
		msgs = append(msgs, fmt.Sprintf("target %q is close to an elbow singularity or out of reach", name))
	}
	return msgs
}

// InverseResult holds the inverse kinematics of one target.
type InverseResult struct {
	// Position is the selected joint position.
	Position robot.RobotJointPosition
	// External holds every declared external axis value. The robot
	// carrier value is derived from the achieved base position.
	External      robot.ExternalJointPosition
	Solutions     [8]Solution
	Configuration int
	InLimits      bool
	Messages      []string
}

// Selected returns the chosen raw solution.
func (r InverseResult) Selected() Solution {
	return r.Solutions[r.Configuration]
}

// Inverse computes the joint position reaching target t, a RobotTarget
// expressed in work object wo or a JointTarget which is copied through.
// Singularities and limit violations are reported in the result; only
// an unusable target or work object is an error.
func (s *Solver) Inverse(t Target, wo WorkObject) (InverseResult, error) {
	r := s.robot
	switch t := t.(type) {
	case JointTarget:
		e := r.ResolveExternal(t.External)
		res := InverseResult{
			Position: t.Robot,
			External: e,
		}
		res.Configuration, _ = s.Configuration(t.Robot)
		res.Messages = r.CheckLimits(t.Robot, e)
		res.InLimits = len(res.Messages) == 0
		return res, nil
	case RobotTarget:
		return s.inverseCartesian(t, wo)
	case *RobotTarget:
		return s.inverseCartesian(*t, wo)
	case *JointTarget:
		return s.Inverse(*t, wo)
	}
	return InverseResult{}, errors.Wrapf(ErrTarget, "%T", t)
}

func (s *Solver) inverseCartesian(t RobotTarget, wo WorkObject) (InverseResult, error) {
	r := s.robot
	if t.Configuration < 0 || t.Configuration > 7 {
		return InverseResult{}, errors.Wrapf(ErrConfiguration, "target %q configuration %d", t.Name, t.Configuration)
	}
	e := t.External
	w, err := wo.Pose(r, e)
	if err != nil {
		return InverseResult{}, err
	}
	tcp := w.Mul(t.Frame)

	if a, ok := r.RobotMovingAxis(); ok && !e.IsDefined(a.LogicID) {
		v := a.Default()
		if a.Kind == robot.Linear {
			v = a.Limits.Clamp(a.Project(r.Base.Origin, tcp.Origin))
		}
		e[a.LogicID] = v
	}
	e = r.ResolveExternal(e)
	base := r.EffectiveBase(e)
	if a, ok := r.RobotMovingAxis(); ok {
		e[a.LogicID] = carrierValue(a, r.Base, base)
	}

	flange := tcp.Mul(r.Tool.TCP.Inverse())
	sols := s.solve(flange.In(base))
	res := InverseResult{
		External:      e,
		Solutions:     sols,
		Configuration: t.Configuration,
	}
	sel := sols[t.Configuration]
	res.Position = sel.Position
	res.Messages = sel.Messages(t.Name)
	limits := r.CheckLimits(sel.Position, e)
	res.Messages = append(res.Messages, limits...)
	res.InLimits = len(limits) == 0
	if len(res.Messages) != 0 {
		s.logger.Debugw("inverse kinematics", "target", t.Name, "configuration", t.Configuration, "messages", res.Messages)
	}
	return res, nil
}

// carrierValue measures how far axis a has carried the base from
// nominal to achieved.
func carrierValue(a robot.ExternalAxis, nominal, achieved frame.Frame) float64 {
	if a.Kind == robot.Linear {
		return a.Displacement(nominal.Origin, achieved.Origin)
	}
	// A point on the rotation axis carries no angle, so try points
	// away from the base origin as well.
	for _, p := range []r3.Vec{{}, frame.UnitX, frame.UnitY} {
		from, to := nominal.Apply(p), achieved.Apply(p)
		if r3.Norm(r3.Cross(r3.Sub(from, a.Origin), a.Direction)) > geometryTolerance {
			return a.Displacement(from, to)
		}
	}
	return 0
}

// jointValue converts a canonical angle of axis i to a normalized
// joint value in degrees.
func (s *Solver) jointValue(i int, a geom.Angle) float64 {
	cal := s.robot.Calibration
	deg := float64(a) * 180 / math.Pi
	return robot.NormalizeAngle(cal.Sign(i) * (deg - cal.Offsets[i]))
}

// canonical converts joint value q of axis i to its canonical angle.
func (s *Solver) canonical(i int, q float64) geom.Angle {
	cal := s.robot.Calibration
	return geom.Degrees(cal.Sign(i)*q + cal.Offsets[i])
}

// rzy returns the rotation matrix Rz(z)*Ry(y).
func rzy(z, y geom.Angle) *r3.Mat {
	sz, cz := z.S(), z.C()
	sy, cy := y.S(), y.C()
	return r3.NewMat([]float64{
		cz * cy, -sz, cz * sy,
		sz * cy, cz, sz * sy,
		-sy, 0, cy,
	})
}

// solve computes all eight raw solutions for the flange frame f given
// in effective base coordinates.
func (s *Solver) solve(f frame.Frame) [8]Solution {
	var sols [8]Solution
	r0e := r3.Rotation(quat.Mul(quat.Number(f.Orientation()), quat.Conj(quat.Number(s.p.flangeRot)))).Mat()
	c := r3.Sub(f.Origin, r0e.MulVec(s.p.flangeOffset))
	s.solve1(&sols, 0, c, r0e)
	s.solve1(&sols, ShoulderBack, c, r0e)
	return sols
}

// solve1 places axis 1 for the shoulder branch and the wrist center c.
func (s *Solver) solve1(sols *[8]Solution, idx int, c r3.Vec, r0e *r3.Mat) {
	p := s.p
	elbow := false
	d2 := c.X*c.X + c.Y*c.Y - p.b*p.b
	if d2 < 0 {
		// The wrist center is inside the cylinder swept by the b
		// offset; no exact solution.
		d2 = 0
		elbow = true
	}
	x := math.Sqrt(d2)
	if idx&ShoulderBack != 0 {
		x = -x
	}
	a0 := geom.Angle(math.Atan2(c.Y, c.X) - math.Atan2(p.b, x))
	u := x - p.a1
	v := c.Z - p.c1
	s.solve2(sols, idx, r0e, a0, u, v, elbow)
	s.solve2(sols, idx|ElbowDown, r0e, a0, u, v, elbow)
}

// solve2 places axes 2 and 3 given the wrist center at (u,v) in the
// arm plane, relative to axis 2.
func (s *Solver) solve2(sols *[8]Solution, idx int, r0e *r3.Mat, a0 geom.Angle, u, v float64, elbow bool) {
	p := s.p
	tol := s.robot.Calibration.ElbowTolerance()
	k2 := p.a2*p.a2 + p.c3*p.c3
	k := math.Sqrt(k2)
	psi := math.Atan2(p.a2, p.c3)
	d2 := u*u + v*v
	d := math.Sqrt(d2)

	cg := (d2 - p.c2*p.c2 - k2) / (2 * p.c2 * k)
	if cg > 1 || cg < -1 {
		elbow = true
		cg = math.Max(-1, math.Min(1, cg))
	}
	g := math.Acos(cg)
	if g < tol || g > math.Pi-tol {
		elbow = true
	}
	var alpha float64
	if !geom.Zeroish(d) {
		ca := (d2 + p.c2*p.c2 - k2) / (2 * d * p.c2)
		alpha = math.Acos(math.Max(-1, math.Min(1, ca)))
	}

	// Elbow up bends the upper arm forward on the front branch and
	// backward on the back branch.
	e := 1.0
	if (idx&ShoulderBack != 0) != (idx&ElbowDown != 0) {
		e = -1
	}
	dir := math.Atan2(u, v)
	a1 := geom.Angle(dir - e*alpha)
	a2 := geom.Angle(e*g - psi)
	s.solve3(sols, idx, r0e, a0, a1, a2, elbow)
	s.solve3(sols, idx|WristFlipped, r0e, a0, a1, a2, elbow)
}

// solve3 decomposes the remaining orientation over the spherical
// wrist and records the solution.
func (s *Solver) solve3(sols *[8]Solution, idx int, r0e *r3.Mat, a0, a1, a2 geom.Angle, elbow bool) {
	var m r3.Mat
	m.Mul(rzy(a0, a1+a2).T(), r0e)

	a4 := geom.Angle(math.Atan2(math.Hypot(m.At(0, 2), m.At(1, 2)), m.At(2, 2)))
	tol := s.robot.Calibration.WristTolerance()
	wrist := float64(a4) < tol || float64(a4) > math.Pi-tol
	var a3 geom.Angle
	if !wrist {
		a3 = geom.Angle(math.Atan2(m.At(1, 2), m.At(0, 2)))
	}
	var n r3.Mat
	n.Mul(rzy(a3, a4).T(), &m)
	a5 := geom.Angle(math.Atan2(n.At(1, 0), n.At(0, 0)))
	if idx&WristFlipped != 0 {
		a3 += math.Pi
		a4 = -a4
		a5 += math.Pi
	}

	var q robot.RobotJointPosition
	for i, a := range []geom.Angle{a0, a1, a2, a3, a4, a5} {
		q[i] = s.jointValue(i, a)
	}
	sols[idx] = Solution{
		Position:      q,
		WristSingular: wrist,
		ElbowSingular: elbow,
	}
}
