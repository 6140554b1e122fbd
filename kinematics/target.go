package kinematics

import (
	"github.com/pkg/errors"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Target is a programmed robot destination, either a RobotTarget or a
// JointTarget.
type Target interface {
	TargetName() string
	ExternalPosition() robot.ExternalJointPosition
}

// RobotTarget is a Cartesian target: a TCP frame expressed in a work
// object, the configuration index selecting the arm branch, and the
// external axis values.
type RobotTarget struct {
	Name          string
	Frame         frame.Frame
	Configuration int
	External      robot.ExternalJointPosition
}

// TargetName returns the target name.
func (t RobotTarget) TargetName() string { return t.Name }

// ExternalPosition returns the external axis values of the target.
func (t RobotTarget) ExternalPosition() robot.ExternalJointPosition { return t.External }

// JointTarget is a destination given directly in joint values. The
// values are copied through Inverse and the path generator as given;
// like the whole-turn aliases from ClosestToReference they may lie
// outside (-180, 180] when the axis limits allow it.
type JointTarget struct {
	Name     string
	Robot    robot.RobotJointPosition
	External robot.ExternalJointPosition
}

// TargetName returns the target name.
func (t JointTarget) TargetName() string { return t.Name }

// ExternalPosition returns the external axis values of the target.
func (t JointTarget) ExternalPosition() robot.ExternalJointPosition { return t.External }

// WorkObject is the user coordinate system Cartesian targets are
// expressed in. When Axis names an external axis the frame rides on
// it; Frame is then given with that axis at zero.
type WorkObject struct {
	Name  string
	Frame frame.Frame
	Axis  string
}

// Pose returns the work object frame in world coordinates with the
// external axes of r at e.
func (w WorkObject) Pose(r *robot.Robot, e robot.ExternalJointPosition) (frame.Frame, error) {
	if w.Axis == "" {
		return w.Frame, nil
	}
	a, err := r.Axis(w.Axis)
	if err != nil {
		return frame.Frame{}, errors.Wrapf(ErrWorkObject, "work object %q: %v", w.Name, err)
	}
	if a.MovesRobot {
		return frame.Frame{}, errors.Wrapf(ErrWorkObject, "work object %q rides on robot carrier %q", w.Name, a.Name)
	}
	v := a.Default()
	if e.IsDefined(a.LogicID) {
		v = e[a.LogicID]
	}
	return a.Motion(v).Mul(w.Frame), nil
}
