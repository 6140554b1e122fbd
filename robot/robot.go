// Package robot holds the static description of a six axis
// articulated robot arm: its base, the six joint frames with their
// limits, the tool and any external axes that move the robot or the
// work.
//
// The joint frames are given in world coordinates with every internal
// axis at zero and the robot sitting on its nominal base. Joint k
// rotates about the Z axis of its frame.
package robot

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

// Err* are the model errors exported by this package.
var (
	ErrLogicID        = errors.New("invalid external axis logic id")
	ErrDuplicateAxis  = errors.New("duplicate external axis")
	ErrTooManyMovers  = errors.New("more than one external axis moves the robot")
	ErrBadLimits      = errors.New("axis limits are inverted")
	ErrAxisDirection  = errors.New("external axis has no direction")
	ErrUnknownAxis    = errors.New("unknown external axis")
	ErrBadCalibration = errors.New("calibration sign must be +1 or -1")
)

// DefaultSingularity is the default singularity threshold in radians.
const DefaultSingularity = 1e-3

// Joint holds an internal robot axis.
type Joint struct {
	// Frame is the joint frame in the unposed robot. The joint
	// rotates about its Z axis.
	Frame  frame.Frame
	Limits Interval
}

// Tool is the end effector mounted on the robot flange.
type Tool struct {
	Name string
	// TCP is the tool center point expressed in flange coordinates.
	TCP frame.Frame
}

// Calibration holds per robot constants relating the joint values
// to the canonical arm angles: canonical = Signs[i]*joint + Offsets[i]
// (degrees). The canonical zero pose has the lower and upper arm
// upright and the wrist pointing up.
type Calibration struct {
	Signs   [6]float64
	Offsets [6]float64

	// WristEpsilon is the canonical axis 5 angle (radians) under
	// which the wrist is treated as singular. ElbowEpsilon bounds the
	// elbow angle from a fully stretched or folded arm. Zero values
	// select DefaultSingularity.
	WristEpsilon float64
	ElbowEpsilon float64
}

// Sign returns the direction multiplier for axis i.
func (c Calibration) Sign(i int) float64 {
	if c.Signs[i] < 0 {
		return -1
	}
	return 1
}

// WristTolerance returns the wrist singularity threshold in radians.
func (c Calibration) WristTolerance() float64 {
	if c.WristEpsilon > 0 {
		return c.WristEpsilon
	}
	return DefaultSingularity
}

// ElbowTolerance returns the elbow singularity threshold in radians.
func (c Calibration) ElbowTolerance() float64 {
	if c.ElbowEpsilon > 0 {
		return c.ElbowEpsilon
	}
	return DefaultSingularity
}

// Robot is the complete description of a robot cell. It is long
// lived configuration; computations that need a variant work on a
// Clone.
type Robot struct {
	Name string
	// Base is the nominal robot base frame in world coordinates.
	Base   frame.Frame
	Joints [6]Joint
	// Mounting is the flange frame of the unposed robot in world
	// coordinates. Tools are defined relative to it.
	Mounting     frame.Frame
	Tool         Tool
	ExternalAxes []ExternalAxis
	Calibration  Calibration
}

// Clone returns a deep copy of r.
func (r *Robot) Clone() *Robot {
	c := *r
	c.ExternalAxes = append([]ExternalAxis(nil), r.ExternalAxes...)
	return &c
}

// WithTool returns a copy of r carrying the tool t. r is unchanged.
func (r *Robot) WithTool(t Tool) *Robot {
	c := r.Clone()
	c.Tool = t
	return c
}

// Validate checks the model for the structural constraints every
// computation depends on.
func (r *Robot) Validate() error {
	for i, s := range r.Calibration.Signs {
		if s != 0 && s != 1 && s != -1 {
			return errors.Wrapf(ErrBadCalibration, "axis %d sign %g", i+1, s)
		}
	}
	for i, j := range r.Joints {
		if j.Limits.Min > j.Limits.Max {
			return errors.Wrapf(ErrBadLimits, "robot axis %d %v", i+1, j.Limits)
		}
	}
	seen := map[int]string{}
	names := map[string]bool{}
	movers := 0
	for _, a := range r.ExternalAxes {
		if a.LogicID < 0 || a.LogicID >= len(ExternalJointPosition{}) {
			return errors.Wrapf(ErrLogicID, "axis %q logic id %d", a.Name, a.LogicID)
		}
		if other, ok := seen[a.LogicID]; ok {
			return errors.Wrapf(ErrDuplicateAxis, "axes %q and %q share logic id %d", other, a.Name, a.LogicID)
		}
		if names[a.Name] {
			return errors.Wrapf(ErrDuplicateAxis, "name %q", a.Name)
		}
		seen[a.LogicID] = a.Name
		names[a.Name] = true
		if a.Limits.Min > a.Limits.Max {
			return errors.Wrapf(ErrBadLimits, "external axis %q %v", a.Name, a.Limits)
		}
		if r3.Norm(a.Direction) < 1e-12 {
			return errors.Wrapf(ErrAxisDirection, "axis %q", a.Name)
		}
		if a.MovesRobot {
			movers++
		}
	}
	if movers > 1 {
		return ErrTooManyMovers
	}
	return nil
}

// RobotMovingAxis returns the external axis carrying the robot base,
// if there is one.
func (r *Robot) RobotMovingAxis() (ExternalAxis, bool) {
	for _, a := range r.ExternalAxes {
		if a.MovesRobot {
			return a, true
		}
	}
	return ExternalAxis{}, false
}

// Axis looks up an external axis by name.
func (r *Robot) Axis(name string) (ExternalAxis, error) {
	for _, a := range r.ExternalAxes {
		if a.Name == name {
			return a, nil
		}
	}
	return ExternalAxis{}, errors.Wrapf(ErrUnknownAxis, "%q", name)
}

// ResolveExternal replaces the undefined values of all declared
// external axes with their defaults.
func (r *Robot) ResolveExternal(e ExternalJointPosition) ExternalJointPosition {
	for _, a := range r.ExternalAxes {
		if !e.IsDefined(a.LogicID) {
			e[a.LogicID] = a.Default()
		}
	}
	return e
}

// EffectiveBase returns the robot base frame after the robot moving
// external axis, if any, has been applied at the value held in e.
func (r *Robot) EffectiveBase(e ExternalJointPosition) frame.Frame {
	a, ok := r.RobotMovingAxis()
	if !ok {
		return r.Base
	}
	v := a.Default()
	if e.IsDefined(a.LogicID) {
		v = e[a.LogicID]
	}
	return a.Motion(v).Mul(r.Base)
}

// CheckLimits tests a joint position against every declared interval
// and returns one message per violation.
func (r *Robot) CheckLimits(q RobotJointPosition, e ExternalJointPosition) []string {
	var msgs []string
	for i, j := range r.Joints {
		if !j.Limits.Contains(q[i]) {
			msgs = append(msgs, fmt.Sprintf("robot axis %d value %.3f is outside its limits %v", i+1, q[i], j.Limits))
		}
	}
	for _, a := range r.ExternalAxes {
		if !e.IsDefined(a.LogicID) {
			continue
		}
		if v := e[a.LogicID]; !a.Limits.Contains(v) {
			msgs = append(msgs, fmt.Sprintf("external axis %q value %.3f is outside its limits %v", a.Name, v, a.Limits))
		}
	}
	return msgs
}
