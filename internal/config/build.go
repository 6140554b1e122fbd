package config

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/kinematics"
	"zappem.net/pub/kinematics/armpath/path"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Setup is a configuration converted into model types.
type Setup struct {
	Robot       *robot.Robot
	WorkObjects map[string]kinematics.WorkObject
	Program     []path.Command
	Steps       int
}

func (v Vec) vec() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Model converts the configuration frame.
func (f Frame) Model() (frame.Frame, error) {
	o := f.Origin.vec()
	switch {
	case f.XAxis != nil && f.YAxis != nil:
		return frame.FromAxes(o, f.XAxis.vec(), f.YAxis.vec())
	case f.XAxis != nil || f.YAxis != nil:
		return frame.Frame{}, errors.New("frame needs both x_axis and y_axis")
	case f.Quaternion != nil:
		q := quat.Number{Real: f.Quaternion[0], Imag: f.Quaternion[1], Jmag: f.Quaternion[2], Kmag: f.Quaternion[3]}
		if quat.Abs(q) < 1e-12 {
			return frame.Frame{}, errors.New("zero quaternion")
		}
		return frame.New(o, r3.Rotation(q)), nil
	}
	return frame.Translation(o), nil
}

func external(vs []*float64) (robot.ExternalJointPosition, error) {
	e := robot.NewExternalJointPosition()
	if len(vs) > len(e) {
		return e, errors.Errorf("%d external values, at most %d allowed", len(vs), len(e))
	}
	for i, v := range vs {
		if v != nil {
			e[i] = *v
		}
	}
	return e, nil
}

func interval(l [2]float64) robot.Interval {
	return robot.Interval{Min: l[0], Max: l[1]}
}

func (t Tool) tool() (robot.Tool, error) {
	f, err := t.TCP.Model()
	if err != nil {
		return robot.Tool{}, errors.Wrapf(err, "tool %q", t.Name)
	}
	return robot.Tool{Name: t.Name, TCP: f}, nil
}

// BuildRobot converts the robot description into a validated model.
func (r Robot) BuildRobot() (*robot.Robot, error) {
	base, err := r.Base.Model()
	if err != nil {
		return nil, errors.Wrap(err, "base")
	}
	cal := robot.Calibration{
		Offsets:      r.Calibration.Offsets,
		WristEpsilon: r.Calibration.WristEpsilon,
		ElbowEpsilon: r.Calibration.ElbowEpsilon,
	}
	if r.Calibration.Signs != nil {
		cal.Signs = *r.Calibration.Signs
	}
	var limits [6]robot.Interval
	for i, l := range r.Limits {
		limits[i] = interval(l)
	}

	var m *robot.Robot
	if g := r.Geometry; g != nil {
		m, err = robot.NewArm(r.Name, base, robot.ArmGeometry{
			A1: g.A1, A2: g.A2, B: g.B, C1: g.C1, C2: g.C2, C3: g.C3, C4: g.C4,
		}, cal, limits)
		if err != nil {
			return nil, err
		}
	} else {
		m = &robot.Robot{Name: r.Name, Base: base, Calibration: cal}
		for i, j := range r.Joints {
			f := frame.AlongZ(j.Origin.vec(), j.ZAxis.vec())
			if j.XAxis != nil {
				if f, err = frame.FromAxes(j.Origin.vec(), j.XAxis.vec(), r3.Cross(j.ZAxis.vec(), j.XAxis.vec())); err != nil {
					return nil, errors.Wrapf(err, "joint %d", i+1)
				}
			}
			m.Joints[i] = robot.Joint{Frame: f, Limits: limits[i]}
		}
		if m.Mounting, err = r.Mounting.Model(); err != nil {
			return nil, errors.Wrap(err, "mounting")
		}
	}

	if r.Tool != nil {
		if m.Tool, err = r.Tool.tool(); err != nil {
			return nil, err
		}
	}
	for _, a := range r.ExternalAxes {
		kind := robot.Linear
		if a.Kind == "rotational" {
			kind = robot.Rotational
		}
		m.ExternalAxes = append(m.ExternalAxes, robot.ExternalAxis{
			Name:       a.Name,
			Kind:       kind,
			LogicID:    a.LogicID,
			Limits:     interval(a.Limits),
			MovesRobot: a.MovesRobot,
			Origin:     a.Origin.vec(),
			Direction:  a.Direction.vec(),
		})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (t Target) target() (kinematics.RobotTarget, error) {
	f, err := t.Frame.Model()
	if err != nil {
		return kinematics.RobotTarget{}, errors.Wrapf(err, "target %q", t.Name)
	}
	e, err := external(t.External)
	if err != nil {
		return kinematics.RobotTarget{}, errors.Wrapf(err, "target %q", t.Name)
	}
	return kinematics.RobotTarget{Name: t.Name, Frame: f, Configuration: t.Configuration, External: e}, nil
}

var moveTypes = map[string]path.MoveType{
	"absj":     path.AbsoluteJoint,
	"joint":    path.Joint,
	"linear":   path.Linear,
	"circular": path.Circular,
}

// Build converts the whole document.
func (c *Config) Build() (*Setup, error) {
	r, err := c.Robot.BuildRobot()
	if err != nil {
		return nil, errors.Wrap(err, "robot")
	}
	s := &Setup{
		Robot:       r,
		WorkObjects: map[string]kinematics.WorkObject{},
		Steps:       c.Steps,
	}
	tools := map[string]robot.Tool{}
	if r.Tool.Name != "" {
		tools[r.Tool.Name] = r.Tool
	}
	for _, t := range c.Tools {
		if tools[t.Name], err = t.tool(); err != nil {
			return nil, err
		}
	}
	for name, w := range c.WorkObjects {
		f, err := w.Frame.Model()
		if err != nil {
			return nil, errors.Wrapf(err, "work object %q", name)
		}
		if w.Axis != "" {
			if _, err := r.Axis(w.Axis); err != nil {
				return nil, errors.Wrapf(err, "work object %q", name)
			}
		}
		s.WorkObjects[name] = kinematics.WorkObject{Name: name, Frame: f, Axis: w.Axis}
	}

	for i, cmd := range c.Program {
		pc, err := s.command(cmd, tools)
		if err != nil {
			return nil, errors.Wrapf(err, "program entry %d", i)
		}
		s.Program = append(s.Program, pc)
	}
	return s, nil
}

func (s *Setup) command(cmd Command, tools map[string]robot.Tool) (path.Command, error) {
	switch {
	case cmd.Tool != "":
		t, ok := tools[cmd.Tool]
		if !ok {
			return nil, errors.Errorf("unknown tool %q", cmd.Tool)
		}
		return path.OverrideTool{Tool: t}, nil
	case cmd.Conf != nil:
		return path.ConfigurationControl{Linear: cmd.Conf.Linear, Joint: cmd.Conf.Joint}, nil
	case cmd.CircularMode != "":
		m, err := path.ParseCircularMode(cmd.CircularMode)
		if err != nil {
			return nil, err
		}
		return path.SetCircularMode{Mode: m}, nil
	case cmd.Wait != nil:
		return path.Wait{Seconds: *cmd.Wait}, nil
	}

	m := path.Movement{
		Name:  cmd.Name,
		Type:  moveTypes[cmd.Move],
		Speed: path.Speed{TCP: cmd.Speed},
		Time:  cmd.Time,
	}
	if cmd.WorkObject != "" {
		wo, ok := s.WorkObjects[cmd.WorkObject]
		if !ok {
			return nil, errors.Errorf("unknown work object %q", cmd.WorkObject)
		}
		m.WorkObject = wo
	}
	if cmd.Joints != nil {
		e, err := external(cmd.External)
		if err != nil {
			return nil, err
		}
		m.Target = kinematics.JointTarget{Name: cmd.Name, Robot: robot.RobotJointPosition(*cmd.Joints), External: e}
	} else {
		t, err := cmd.Target.target()
		if err != nil {
			return nil, err
		}
		m.Target = t
	}
	if cmd.Via != nil {
		via, err := cmd.Via.target()
		if err != nil {
			return nil, err
		}
		m.CirclePoint = &via
	}
	return m, nil
}
