package path

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Span locates the samples of one movement in a Trajectory.
type Span struct {
	// Command is the index of the movement in the program.
	Command int
	Name    string
	// Start and End delimit the samples, End exclusive.
	Start, End int
}

// Trajectory is the sampled result of a whole program.
type Trajectory struct {
	Robot    []robot.RobotJointPosition
	External []robot.ExternalJointPosition
	TCP      []frame.Frame
	InLimits []bool
	Segments []Span
	// Curve is the TCP path, nil when it has fewer than two distinct
	// points.
	Curve frame.Polyline
	// Warnings holds every distinct warning, in order of appearance.
	Warnings []string
	// Errors holds the segments that could not be produced.
	Errors []error
	// Time is the estimated program time in seconds.
	Time float64
	// Final is the state after the last command.
	Final State
}

// InLimitsAll reports whether every sample is within the axis
// limits.
func (t *Trajectory) InLimitsAll() bool {
	for _, ok := range t.InLimits {
		if !ok {
			return false
		}
	}
	return true
}

func (t *Trajectory) append(i int, seg Segment) {
	t.Warnings = append(t.Warnings, seg.Warnings...)
	if len(seg.Robot) == 0 {
		return
	}
	start := len(t.Robot)
	t.Robot = append(t.Robot, seg.Robot...)
	t.External = append(t.External, seg.External...)
	t.TCP = append(t.TCP, seg.TCP...)
	t.InLimits = append(t.InLimits, seg.InLimits...)
	t.Segments = append(t.Segments, Span{Command: i, Name: seg.Name, Start: start, End: len(t.Robot)})
}

// Generate runs the program cmds from the initial state. A command
// that cannot be sampled is recorded in Errors and skipped, keeping
// any warnings it raised first; the following commands continue from
// the last good state.
//
// The program is expected to place the robot with an absolute joint
// movement before any other movement. Commands that do not move the
// robot (tool, configuration, circular mode, wait) may come first.
// When the first movement is of another type it starts from all axes
// at zero and a warning is recorded.
func (g *Generator) Generate(cmds []Command) (*Trajectory, error) {
	if len(cmds) == 0 {
		return nil, ErrEmpty
	}
	st := g.Initial()
	t := &Trajectory{}
	for i, cmd := range cmds {
		next, seg, err := g.Step(st, cmd)
		if err != nil {
			g.logger.Warnw("segment aborted", "command", i, "error", err)
			t.Warnings = append(t.Warnings, seg.Warnings...)
			t.Errors = append(t.Errors, errors.Wrapf(err, "command %d", i))
			continue
		}
		st = next
		t.append(i, seg)
	}

	pts := make([]r3.Vec, len(t.TCP))
	for i, f := range t.TCP {
		pts[i] = f.Origin
	}
	t.Curve = frame.NewPolyline(pts, curveTolerance)
	t.Warnings = distinct(t.Warnings)
	t.Time = st.Time
	t.Final = st
	return t, nil
}

// distinct drops repeated strings, keeping the first occurrence.
func distinct(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
