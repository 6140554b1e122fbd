package path

import (
	"fmt"

	"github.com/pkg/errors"

	"zappem.net/pub/kinematics/armpath/kinematics"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Command is one entry of a robot program. The concrete types are
// OverrideTool, ConfigurationControl, SetCircularMode, Wait and
// Movement.
type Command interface {
	command()
}

// OverrideTool replaces the active tool for the following movements.
type OverrideTool struct {
	Tool robot.Tool
}

// ConfigurationControl toggles configuration monitoring for linear
// (and circular) and for joint movements. With monitoring on a
// Cartesian target is reached in its own configuration; with it off
// the solution closest to the previous position is used.
type ConfigurationControl struct {
	Linear bool
	Joint  bool
}

// SetCircularMode selects how circular movements blend orientation.
type SetCircularMode struct {
	Mode CircularMode
}

// Wait holds the robot for a time in seconds.
type Wait struct {
	Seconds float64
}

// MoveType is the interpolation used by a Movement.
type MoveType int

// The movement types.
const (
	AbsoluteJoint MoveType = iota
	Joint
	Linear
	Circular
)

func (m MoveType) String() string {
	switch m {
	case AbsoluteJoint:
		return "absolute joint"
	case Joint:
		return "joint"
	case Linear:
		return "linear"
	case Circular:
		return "circular"
	}
	return fmt.Sprintf("MoveType(%d)", int(m))
}

// CircularMode selects the orientation blending of circular moves.
type CircularMode int

// The circular modes. Only PathFrame, ObjectFrame and CircPointOri are
// modelled; the wrist modes fall back to PathFrame.
const (
	PathFrame CircularMode = iota
	ObjectFrame
	CircPointOri
	Wrist45
	Wrist46
	Wrist56
)

var circularModeNames = map[CircularMode]string{
	PathFrame:    "PathFrame",
	ObjectFrame:  "ObjFrame",
	CircPointOri: "CircPointOri",
	Wrist45:      "Wrist45",
	Wrist46:      "Wrist46",
	Wrist56:      "Wrist56",
}

func (c CircularMode) String() string {
	if s, ok := circularModeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CircularMode(%d)", int(c))
}

// ParseCircularMode looks a mode up by its name.
func ParseCircularMode(name string) (CircularMode, error) {
	for m, s := range circularModeNames {
		if s == name {
			return m, nil
		}
	}
	return PathFrame, errors.Wrapf(ErrCircularMode, "%q", name)
}

// supported reports whether the mode is modelled.
func (c CircularMode) supported() bool {
	return c == PathFrame || c == ObjectFrame || c == CircPointOri
}

// Speed is the programmed speed of a movement. TCP is in length units
// per second.
type Speed struct {
	Name string
	TCP  float64
}

// Movement moves the robot to Target. Circular movements pass through
// CirclePoint. Cartesian targets are expressed in WorkObject. A
// positive Time overrides the duration derived from Speed.
type Movement struct {
	Name        string
	Type        MoveType
	Target      kinematics.Target
	CirclePoint *kinematics.RobotTarget
	WorkObject  kinematics.WorkObject
	Speed       Speed
	Time        float64
}

func (OverrideTool) command()         {}
func (ConfigurationControl) command() {}
func (SetCircularMode) command()      {}
func (Wait) command()                 {}
func (Movement) command()             {}
