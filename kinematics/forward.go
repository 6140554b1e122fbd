package kinematics

import (
	"math"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// ForwardResult holds the forward kinematics of one joint position.
type ForwardResult struct {
	// TCP is the tool center point and Flange the mounting flange,
	// both in world coordinates.
	TCP    frame.Frame
	Flange frame.Frame
	// Transforms[0] carries the nominal base to the effective base;
	// Transforms[k] adds the rotation of joint k.
	Transforms [7]frame.Frame
	// Joints are the posed joint frames in world coordinates.
	Joints [6]frame.Frame
	// External holds the posed frame of each external axis, in the
	// order the robot declares them.
	External []frame.Frame
	// ExternalPosition is e with undefined values replaced by their
	// defaults.
	ExternalPosition robot.ExternalJointPosition
	InLimits         bool
	Messages         []string
}

// chain poses the joint frames. motion is applied ahead of the first
// joint and moves the whole arm.
func (s *Solver) chain(q robot.RobotJointPosition, motion frame.Frame) (ts [7]frame.Frame, posed [6]frame.Frame, flange frame.Frame) {
	t := motion
	ts[0] = t
	for k, j := range s.robot.Joints {
		p := t.Mul(j.Frame)
		posed[k] = p
		t = frame.RotationAbout(p.Origin, p.ZAxis(), q[k]*math.Pi/180).Mul(t)
		ts[k+1] = t
	}
	return ts, posed, t.Mul(s.robot.Mounting)
}

// Forward evaluates the forward kinematics for joint position q with
// the external axes at e. Axis limit violations are reported in the
// result, they never stop the computation.
func (s *Solver) Forward(q robot.RobotJointPosition, e robot.ExternalJointPosition) ForwardResult {
	r := s.robot
	e = r.ResolveExternal(e)

	motion := frame.World
	if a, ok := r.RobotMovingAxis(); ok {
		motion = a.Motion(e[a.LogicID])
	}
	ts, posed, flange := s.chain(q, motion)
	res := ForwardResult{
		TCP:              flange.Mul(r.Tool.TCP),
		Flange:           flange,
		Transforms:       ts,
		Joints:           posed,
		ExternalPosition: e,
	}
	for _, a := range r.ExternalAxes {
		res.External = append(res.External, a.AttachmentFrame(e[a.LogicID]))
	}
	res.Messages = r.CheckLimits(q, e)
	res.InLimits = len(res.Messages) == 0
	return res
}
