package path

import (
	"github.com/pkg/errors"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/robot"
)

// Pace holds one sample of a program as it is forwarded by Stream.
type Pace struct {
	// Command is the index of the program entry producing the pace.
	Command  int
	Name     string
	Robot    robot.RobotJointPosition
	External robot.ExternalJointPosition
	TCP      frame.Frame
	InLimits bool
	// Time is the estimated program time at which the pace is
	// reached. It is -1 for a pace reporting Err.
	Time     float64
	Warnings []string
	Err      error
}

// Stream returns a channel over which a backgrounded function
// forwards the samples of the program cmds, in order. A command that
// cannot be sampled is reported as a single pace carrying Err and
// the program continues from the last good state, as in Generate.
// Warnings are attached to the first pace of their command; those of
// commands without samples are only kept by Generate.
// The function terminates and closes the channel early if the
// quitter channel is closed.
func (g *Generator) Stream(cmds []Command, quitter <-chan struct{}) (<-chan Pace, error) {
	if len(cmds) == 0 {
		return nil, ErrEmpty
	}
	paces := make(chan Pace, 3)
	go g.stream(cmds, paces, quitter)
	return paces, nil
}

func (g *Generator) stream(cmds []Command, paces chan<- Pace, quitter <-chan struct{}) {
	defer close(paces)
	send := func(p Pace) bool {
		select {
		case <-quitter:
			return false
		case paces <- p:
			return true
		}
	}

	st := g.Initial()
	for i, cmd := range cmds {
		next, seg, err := g.Step(st, cmd)
		if err != nil {
			g.logger.Warnw("segment aborted", "command", i, "error", err)
			if !send(Pace{Command: i, Name: seg.Name, Time: -1, Warnings: seg.Warnings, Err: errors.Wrapf(err, "command %d", i)}) {
				return
			}
			continue
		}
		n := float64(len(seg.Robot))
		for k := range seg.Robot {
			p := Pace{
				Command:  i,
				Name:     seg.Name,
				Robot:    seg.Robot[k],
				External: seg.External[k],
				TCP:      seg.TCP[k],
				InLimits: seg.InLimits[k],
				Time:     st.Time + seg.Time*float64(k+1)/n,
			}
			if k == 0 {
				p.Warnings = seg.Warnings
			}
			if !send(p) {
				return
			}
		}
		st = next
	}
}
