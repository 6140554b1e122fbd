// Package path approximates the tool path of a robot program. A
// Generator runs a sequence of commands through the kinematics of one
// robot and samples every movement at a fixed number of steps.
//
// The result is a geometric approximation for visualisation and limit
// checking. Controller details such as velocity profiles and blending
// zones are not modelled.
package path

import (
	"fmt"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/kinematics"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Err* are the errors exported by this package.
var (
	ErrSteps        = errors.New("interpolation count must be at least 1")
	ErrEmpty        = errors.New("empty program")
	ErrCommand      = errors.New("unknown command")
	ErrMoveTarget   = errors.New("target type does not suit the movement")
	ErrCirclePoint  = errors.New("circular movement without a circle point")
	ErrArc          = errors.New("arc cannot be constructed")
	ErrCircularMode = errors.New("unknown circular mode")
)

// curveTolerance is the distance under which consecutive TCP points
// are treated as one.
const curveTolerance = 1e-6

// State is the accumulator threaded through a program.
type State struct {
	Robot    robot.RobotJointPosition
	External robot.ExternalJointPosition
	// TCP is the world frame of the active tool at Robot.
	TCP  frame.Frame
	Tool robot.Tool
	// ConfLinear and ConfJoint hold the configuration monitoring
	// toggles.
	ConfLinear bool
	ConfJoint  bool
	Circular   CircularMode
	// Time is the accumulated program time in seconds.
	Time float64
	// Started is set once the first movement has been processed.
	Started bool
}

// Segment holds the samples produced by one command.
type Segment struct {
	Name     string
	Robot    []robot.RobotJointPosition
	External []robot.ExternalJointPosition
	TCP      []frame.Frame
	InLimits []bool
	Warnings []string
	Time     float64
}

func (s *Segment) add(q robot.RobotJointPosition, e robot.ExternalJointPosition, tcp frame.Frame, ok bool) {
	s.Robot = append(s.Robot, q)
	s.External = append(s.External, e)
	s.TCP = append(s.TCP, tcp)
	s.InLimits = append(s.InLimits, ok)
}

func (s *Segment) warn(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Generator samples robot programs.
type Generator struct {
	solver *kinematics.Solver
	robot  *robot.Robot
	steps  int
	logger golog.Logger
}

// NewGenerator returns a generator sampling every movement of a
// program at steps points. A nil logger selects golog.Global().
func NewGenerator(s *kinematics.Solver, steps int, logger golog.Logger) (*Generator, error) {
	if steps < 1 {
		return nil, errors.Wrapf(ErrSteps, "got %d", steps)
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &Generator{
		solver: s,
		robot:  s.Robot(),
		steps:  steps,
		logger: logger,
	}, nil
}

// Initial returns the state a program starts from: all robot axes at
// zero, external axes at their defaults, the robot's own tool and
// configuration monitoring on.
func (g *Generator) Initial() State {
	e := g.robot.ResolveExternal(robot.NewExternalJointPosition())
	return State{
		External:   e,
		TCP:        g.solver.Forward(robot.RobotJointPosition{}, e).TCP,
		Tool:       g.robot.Tool,
		ConfLinear: true,
		ConfJoint:  true,
		Circular:   PathFrame,
	}
}

// fractions returns the interpolation parameters of the steps of a
// movement, excluding the start.
func (g *Generator) fractions() []float64 {
	ts := floats.Span(make([]float64, g.steps+1), 0, 1)
	ts[g.steps] = 1
	return ts[1:]
}

// Step applies one command to the state st. It returns the new state
// and the samples of the command. On error st is returned unchanged
// and the segment holds no samples, only the warnings gathered before
// the command failed.
func (g *Generator) Step(st State, cmd Command) (State, Segment, error) {
	switch c := cmd.(type) {
	case OverrideTool:
		st.Tool = c.Tool
		st.TCP = g.solver.WithTool(c.Tool).Forward(st.Robot, st.External).TCP
		return st, Segment{}, nil
	case ConfigurationControl:
		st.ConfLinear = c.Linear
		st.ConfJoint = c.Joint
		return st, Segment{}, nil
	case SetCircularMode:
		st.Circular = c.Mode
		return st, Segment{}, nil
	case Wait:
		seg := Segment{}
		if c.Seconds < 0 {
			seg.warn("negative wait of %g s ignored", c.Seconds)
			return st, seg, nil
		}
		seg.Time = c.Seconds
		st.Time += c.Seconds
		return st, seg, nil
	case Movement:
		return g.move(st, c)
	case *Movement:
		return g.move(st, *c)
	}
	return st, Segment{}, errors.Wrapf(ErrCommand, "%T", cmd)
}

func (g *Generator) move(st State, m Movement) (State, Segment, error) {
	in := st
	s := g.solver.WithTool(st.Tool)
	seg := Segment{Name: m.Name}
	if !st.Started {
		if m.Type == AbsoluteJoint {
			return g.start(s, st, m)
		}
		seg.warn("program does not start with an absolute joint movement, starting %q from the zero position", m.Name)
		st.Started = true
	}

	var err error
	switch m.Type {
	case AbsoluteJoint, Joint:
		err = g.joint(s, st, m, &seg)
	case Linear, Circular:
		err = g.cartesian(s, st, m, &seg)
	default:
		err = errors.Wrapf(ErrCommand, "movement %q type %v", m.Name, m.Type)
	}
	if err != nil {
		return in, Segment{Name: m.Name, Warnings: seg.Warnings}, err
	}

	n := len(seg.Robot) - 1
	seg.Time = g.duration(st, m, &seg)
	st.Robot = seg.Robot[n]
	st.External = seg.External[n]
	st.TCP = seg.TCP[n]
	st.Time += seg.Time
	g.logger.Debugw("segment", "name", m.Name, "type", m.Type, "steps", len(seg.Robot), "time", seg.Time, "warnings", len(seg.Warnings))
	return st, seg, nil
}

// start places the robot on the first absolute joint movement.
func (g *Generator) start(s *kinematics.Solver, st State, m Movement) (State, Segment, error) {
	jt, ok := jointTarget(m.Target)
	if !ok {
		return st, Segment{}, errors.Wrapf(ErrMoveTarget, "absolute joint movement %q to %T", m.Name, m.Target)
	}
	e := g.robot.ResolveExternal(m.Target.ExternalPosition())
	f := s.Forward(jt.Robot, e)
	seg := Segment{Name: m.Name, Warnings: f.Messages}
	seg.add(jt.Robot, e, f.TCP, f.InLimits)
	st.Robot = jt.Robot
	st.External = e
	st.TCP = f.TCP
	st.Started = true
	return st, seg, nil
}

func jointTarget(t kinematics.Target) (kinematics.JointTarget, bool) {
	switch t := t.(type) {
	case kinematics.JointTarget:
		return t, true
	case *kinematics.JointTarget:
		return *t, true
	}
	return kinematics.JointTarget{}, false
}

func robotTarget(t kinematics.Target) (kinematics.RobotTarget, bool) {
	switch t := t.(type) {
	case kinematics.RobotTarget:
		return t, true
	case *kinematics.RobotTarget:
		return *t, true
	}
	return kinematics.RobotTarget{}, false
}

// joint interpolates every axis independently. Joint target values
// are used as given, without wrapping into (-180, 180], so a move to
// 270 on an axis with a wider range turns the long way.
func (g *Generator) joint(s *kinematics.Solver, st State, m Movement, seg *Segment) error {
	var q1 robot.RobotJointPosition
	var e1 robot.ExternalJointPosition
	if jt, ok := jointTarget(m.Target); ok {
		q1 = jt.Robot
		e1 = g.robot.ResolveExternal(m.Target.ExternalPosition())
	} else if m.Type == AbsoluteJoint {
		return errors.Wrapf(ErrMoveTarget, "absolute joint movement %q to %T", m.Name, m.Target)
	} else {
		res, err := s.Inverse(m.Target, m.WorkObject)
		if err != nil {
			return err
		}
		var ws []string
		q1, ws = g.choose(s, m.Target.TargetName(), res, st.Robot, st.ConfJoint)
		seg.Warnings = append(seg.Warnings, ws...)
		e1 = res.External
	}

	ts := g.fractions()
	for k, t := range ts {
		q := st.Robot.Lerp(q1, t)
		e := st.External.Lerp(e1, t)
		if k == len(ts)-1 {
			q, e = q1, e1
		}
		f := s.Forward(q, e)
		seg.add(q, e, f.TCP, f.InLimits)
		seg.Warnings = append(seg.Warnings, f.Messages...)
	}
	return nil
}

// cartesian moves the TCP along a line or an arc in work object
// coordinates, solving the inverse kinematics at every step.
func (g *Generator) cartesian(s *kinematics.Solver, st State, m Movement, seg *Segment) error {
	rt, ok := robotTarget(m.Target)
	if !ok {
		return errors.Wrapf(ErrMoveTarget, "%v movement %q to %T", m.Type, m.Name, m.Target)
	}
	dest, err := s.Inverse(rt, m.WorkObject)
	if err != nil {
		return err
	}
	e0, e1 := st.External, dest.External

	wo, err := m.WorkObject.Pose(g.robot, e0)
	if err != nil {
		return err
	}
	from := st.TCP.In(wo)
	to := rt.Frame

	var local func(t float64) frame.Frame
	if m.Type == Linear {
		local = func(t float64) frame.Frame {
			return frame.Interpolate(from, to, t)
		}
	} else {
		local, err = g.circle(st, m, from, to, seg)
		if err != nil {
			return err
		}
	}

	prev := st.Robot
	for _, t := range g.fractions() {
		target := rt
		target.Frame = local(t)
		target.External = e0.Lerp(e1, t)
		res, err := s.Inverse(target, m.WorkObject)
		if err != nil {
			return err
		}
		q, ws := g.choose(s, rt.Name, res, prev, st.ConfLinear)
		seg.Warnings = append(seg.Warnings, ws...)
		if prev[4]*q[4] < 0 {
			seg.warn("%v movement %q passes through a wrist singularity", m.Type, m.Name)
		}
		f := s.Forward(q, res.External)
		seg.add(q, res.External, f.TCP, f.InLimits)
		seg.Warnings = append(seg.Warnings, f.Messages...)
		prev = q
	}
	return nil
}

// circle returns the work object frame along the arc of a circular
// movement from the frame from to the frame to.
func (g *Generator) circle(st State, m Movement, from, to frame.Frame, seg *Segment) (func(t float64) frame.Frame, error) {
	if m.CirclePoint == nil {
		return nil, errors.Wrapf(ErrCirclePoint, "movement %q", m.Name)
	}
	via := m.CirclePoint.Frame
	seg.Warnings = append(seg.Warnings, arcWarnings(m.Name, from.Origin, via.Origin, to.Origin)...)
	c, err := fitArc(from.Origin, via.Origin, to.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "movement %q", m.Name)
	}
	orient, ws := circularOrienter(m.Name, st.Circular, c, from.Orientation(), via.Orientation(), to.Orientation())
	seg.Warnings = append(seg.Warnings, ws...)
	return func(t float64) frame.Frame {
		return frame.Frame{Origin: c.point(t), Rotation: orient(t)}
	}, nil
}

// choose picks the joint position for an inverse kinematics result.
// With monitoring the target configuration is kept and only axes 4
// and 6 are turned towards ref; otherwise the solution closest to ref
// is used.
func (g *Generator) choose(s *kinematics.Solver, name string, res kinematics.InverseResult, ref robot.RobotJointPosition, monitor bool) (robot.RobotJointPosition, []string) {
	if !monitor {
		c, err := s.ClosestToReference(res.Solutions, ref)
		if err == nil {
			return c.Position, res.Solutions[c.Index].Messages(name)
		}
		msgs := append(append([]string(nil), res.Messages...), fmt.Sprintf("target %q: no solution within limits, keeping configuration %d", name, res.Configuration))
		return g.unwrap(res.Position, ref), msgs
	}
	return g.unwrap(res.Position, ref), res.Selected().Messages(name)
}

// unwrap moves axes 4 and 6 by whole turns towards ref, staying inside
// the axis limits.
func (g *Generator) unwrap(q, ref robot.RobotJointPosition) robot.RobotJointPosition {
	for _, i := range []int{3, 5} {
		lim := g.robot.Joints[i].Limits
		best := q[i]
		for _, d := range []float64{-360, 360} {
			if v := q[i] + d; lim.Contains(v) && math.Abs(v-ref[i]) < math.Abs(best-ref[i]) {
				best = v
			}
		}
		q[i] = best
	}
	return q
}

// duration estimates the time taken by a movement.
func (g *Generator) duration(st State, m Movement, seg *Segment) float64 {
	if m.Time > 0 {
		return m.Time
	}
	pts := []r3.Vec{st.TCP.Origin}
	for _, f := range seg.TCP {
		pts = append(pts, f.Origin)
	}
	l := frame.NewPolyline(pts, curveTolerance).Length()
	if m.Speed.TCP <= 0 {
		if l > 0 {
			seg.warn("movement %q has no TCP speed, its time is not counted", m.Name)
		}
		return 0
	}
	return l / m.Speed.TCP
}
