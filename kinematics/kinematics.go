// Package kinematics does forward and inverse kinematics for a six
// axis ortho-parallel robot arm with a spherical wrist, optionally
// carried by an external axis.
//
// The arm is reduced to its canonical form when a Solver is created.
// In the canonical zero pose all arm segments point up along the base
// Z axis and the joint axes are
//
//	J1 = rotate around Z through the base origin
//	J2 = rotate around Y, offset a1 forward and c1 up
//	J3 = rotate around Y, a further c2 up
//	J4 = rotate around Z through the wrist center
//	J5 = rotate around Y through the wrist center
//	J6 = rotate around Z through the wrist center
//
// where the wrist center sits a2 forward, b sideways and c3 up from
// J3. The robot's own joint values relate to the canonical angles by
// the calibration signs and offsets.
package kinematics

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Err* are the errors exported by this package.
var (
	ErrGeometry      = errors.New("robot is not an ortho-parallel arm with a spherical wrist")
	ErrConfiguration = errors.New("configuration index must be in 0..7")
	ErrNoSolution    = errors.New("no solution within axis limits")
	ErrTarget        = errors.New("unsupported target")
	ErrWorkObject    = errors.New("invalid work object axis")
)

// geometryTolerance is the length tolerance used when checking that
// the joint axes line up.
const geometryTolerance = 1e-6

// params are the canonical arm dimensions derived from a robot model.
type params struct {
	a1, a2, b, c1, c2, c3 float64

	// flangeOffset is the flange origin relative to the wrist center
	// and flangeRot the flange orientation, both in base coordinates
	// with the arm in its canonical zero pose.
	flangeOffset r3.Vec
	flangeRot    r3.Rotation
}

// Solver computes kinematics for one robot. It owns a private copy of
// the robot model, so a Solver may be shared by concurrent readers.
type Solver struct {
	robot  *robot.Robot
	p      params
	logger golog.Logger
}

// New validates the robot model r and prepares a Solver for it. A nil
// logger selects golog.Global().
func New(r *robot.Robot, logger golog.Logger) (*Solver, error) {
	if logger == nil {
		logger = golog.Global()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{
		robot:  r.Clone(),
		logger: logger,
	}
	p, err := s.derive()
	if err != nil {
		return nil, err
	}
	s.p = p
	logger.Debugw("derived arm parameters", "robot", r.Name,
		"a1", p.a1, "a2", p.a2, "b", p.b, "c1", p.c1, "c2", p.c2, "c3", p.c3,
		"flange", p.flangeOffset)
	return s, nil
}

// Robot returns a copy of the robot model used by s.
func (s *Solver) Robot() *robot.Robot {
	return s.robot.Clone()
}

// WithTool returns a Solver for the same robot carrying tool t. The
// receiver is unchanged.
func (s *Solver) WithTool(t robot.Tool) *Solver {
	c := *s
	c.robot = s.robot.WithTool(t)
	return &c
}

// zeroPose returns the joint values at which the arm sits in its
// canonical zero pose.
func (s *Solver) zeroPose() robot.RobotJointPosition {
	var q robot.RobotJointPosition
	cal := s.robot.Calibration
	for i := range q {
		q[i] = -cal.Offsets[i] * cal.Sign(i)
	}
	return q
}

// derive reads the canonical dimensions back from the model posed in
// its canonical zero pose on the nominal base.
func (s *Solver) derive() (params, error) {
	var p params
	r := s.robot
	base := r.Base
	_, posed, flange := s.chain(s.zeroPose(), frame.World)

	var js [6]frame.Frame
	for i := range posed {
		js[i] = posed[i].In(base)
	}
	want := [6]r3.Vec{frame.UnitZ, frame.UnitY, frame.UnitY, frame.UnitZ, frame.UnitY, frame.UnitZ}
	for i, j := range js {
		if d := r3.Sub(j.ZAxis(), r3.Scale(r.Calibration.Sign(i), want[i])); r3.Norm(d) > geometryTolerance {
			return p, errors.Wrapf(ErrGeometry, "axis %d points along %v in the canonical pose", i+1, j.ZAxis())
		}
	}

	off := func(v float64) bool { return math.Abs(v) > geometryTolerance }
	j1, j2, j3, j4, j5, j6 := js[0].Origin, js[1].Origin, js[2].Origin, js[3].Origin, js[4].Origin, js[5].Origin
	wrist := r3.Vec{X: j5.X, Y: j4.Y, Z: j5.Z}
	switch {
	case off(j1.X) || off(j1.Y):
		return p, errors.Wrap(ErrGeometry, "axis 1 does not pass through the base origin")
	case off(j3.X - j2.X):
		return p, errors.Wrap(ErrGeometry, "axis 3 is not above axis 2")
	case off(j4.X - wrist.X):
		return p, errors.Wrap(ErrGeometry, "axes 4 and 5 do not intersect")
	case off(j6.X-wrist.X) || off(j6.Y-wrist.Y):
		return p, errors.Wrap(ErrGeometry, "axis 6 does not pass through the wrist center")
	}

	p.a1 = j2.X
	p.c1 = j2.Z
	p.c2 = j3.Z - j2.Z
	p.a2 = wrist.X - j3.X
	p.b = wrist.Y
	p.c3 = wrist.Z - j3.Z
	if !off(p.c2) || !off(math.Hypot(p.a2, p.c3)) {
		return p, errors.Wrap(ErrGeometry, "zero length arm segment")
	}

	f := flange.In(base)
	p.flangeOffset = r3.Sub(f.Origin, wrist)
	p.flangeRot = f.Orientation()
	return p, nil
}
