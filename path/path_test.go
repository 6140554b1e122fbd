package path

import (
	"math"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
	"zappem.net/pub/kinematics/armpath/kinematics"
	"zappem.net/pub/kinematics/armpath/robot"
)

var (
	home = robot.RobotJointPosition{0, 0, 0, 0, 45, 0}
	away = robot.RobotJointPosition{30, 20, -10, 40, 60, -50}
)

func testArm(t *testing.T) *robot.Robot {
	t.Helper()
	r, err := robot.NewArm("arm", frame.World, robot.ArmGeometry{
		A1: 100, A2: -135, C1: 615, C2: 705, C3: 755, C4: 85,
	}, robot.Calibration{
		Offsets: [6]float64{0, 0, 90, 0, 0, 0},
	}, [6]robot.Interval{
		{Min: -180, Max: 180},
		{Min: -90, Max: 150},
		{Min: -180, Max: 75},
		{Min: -200, Max: 200},
		{Min: -120, Max: 120},
		{Min: -400, Max: 400},
	})
	require.NoError(t, err)
	return r
}

func testSolver(t *testing.T) *kinematics.Solver {
	t.Helper()
	s, err := kinematics.New(testArm(t), golog.NewTestLogger(t))
	require.NoError(t, err)
	return s
}

func testGenerator(t *testing.T, steps int) (*kinematics.Solver, *Generator) {
	t.Helper()
	s := testSolver(t)
	g, err := NewGenerator(s, steps, golog.NewTestLogger(t))
	require.NoError(t, err)
	return s, g
}

func moveAbs(name string, q robot.RobotJointPosition) Movement {
	return Movement{
		Name:   name,
		Type:   AbsoluteJoint,
		Target: kinematics.JointTarget{Name: name, Robot: q, External: robot.NewExternalJointPosition()},
		Speed:  Speed{TCP: 100},
	}
}

func startFrame(s *kinematics.Solver) frame.Frame {
	return s.Forward(home, robot.NewExternalJointPosition()).TCP
}

func cartesian(s *kinematics.Solver, name string, f frame.Frame) kinematics.RobotTarget {
	c, _ := s.Configuration(home)
	return kinematics.RobotTarget{Name: name, Frame: f, Configuration: c, External: robot.NewExternalJointPosition()}
}

func hasWarning(tr *Trajectory, part string) bool {
	for _, w := range tr.Warnings {
		if strings.Contains(w, part) {
			return true
		}
	}
	return false
}

func TestNewGeneratorSteps(t *testing.T) {
	_, err := NewGenerator(testSolver(t), 0, nil)
	assert.ErrorIs(t, err, ErrSteps)
}

func TestEmptyProgram(t *testing.T) {
	_, g := testGenerator(t, 5)
	_, err := g.Generate(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestJointMove(t *testing.T) {
	const n = 10
	_, g := testGenerator(t, n)
	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{
			Name:   "away",
			Type:   Joint,
			Target: kinematics.JointTarget{Name: "away", Robot: away, External: robot.NewExternalJointPosition()},
			Speed:  Speed{TCP: 250},
		},
	})
	require.NoError(t, err)
	require.Empty(t, tr.Errors)
	require.Len(t, tr.Segments, 2)

	assert.Equal(t, 1, tr.Segments[0].End-tr.Segments[0].Start)
	seg := tr.Segments[1]
	require.Equal(t, n, seg.End-seg.Start)
	assert.Len(t, tr.Robot, n+1)
	assert.Len(t, tr.TCP, n+1)
	assert.Len(t, tr.InLimits, n+1)

	for axis := range home {
		dir := math.Copysign(1, away[axis]-home[axis])
		prev := home[axis]
		for i := seg.Start; i < seg.End; i++ {
			v := tr.Robot[i][axis]
			assert.GreaterOrEqual(t, dir*(v-prev), -1e-12, "axis %d step %d", axis+1, i)
			prev = v
		}
		assert.InDelta(t, away[axis], tr.Robot[seg.End-1][axis], 1e-6)
	}
	assert.True(t, tr.InLimitsAll())
	assert.Greater(t, tr.Time, 0.0)
	assert.NotNil(t, tr.Curve)
	assert.InDelta(t, tr.Curve.Length()/250, tr.Time, 1e-9)
	assert.Equal(t, away, tr.Final.Robot)
}

func TestMissingAbsoluteStart(t *testing.T) {
	_, g := testGenerator(t, 4)
	tr, err := g.Generate([]Command{
		Movement{
			Name:   "away",
			Type:   Joint,
			Target: kinematics.JointTarget{Name: "away", Robot: away, External: robot.NewExternalJointPosition()},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, tr.Errors)
	assert.True(t, hasWarning(tr, "does not start with an absolute joint"), "warnings: %q", tr.Warnings)
	require.Len(t, tr.Robot, 4)
	assert.InDelta(t, away[0]/4, tr.Robot[0][0], 1e-9)
}

func TestLinearMove(t *testing.T) {
	s, g := testGenerator(t, 20)
	from := startFrame(s)
	delta := r3.Vec{X: 100, Y: 50, Z: -80}
	to := from.WithOrigin(r3.Add(from.Origin, delta))

	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{Name: "line", Type: Linear, Target: cartesian(s, "p1", to), Speed: Speed{TCP: 50}},
	})
	require.NoError(t, err)
	require.Empty(t, tr.Errors)
	require.Len(t, tr.TCP, 21)

	u := r3.Unit(delta)
	for i, f := range tr.TCP {
		d := r3.Sub(f.Origin, from.Origin)
		off := r3.Sub(d, r3.Scale(r3.Dot(d, u), u))
		assert.Less(t, r3.Norm(off), 1e-6, "step %d leaves the line", i)
		assert.Less(t, frame.AngleBetween(f.Orientation(), from.Orientation()), 1e-6, "step %d turns", i)
	}
	assert.True(t, tr.TCP[20].Equal(to, 1e-6))
	assert.InDelta(t, r3.Norm(delta)/50, tr.Time, 1e-6)
}

func TestLinearIdenticalOrientation(t *testing.T) {
	a := frame.New(r3.Vec{X: 1}, r3.NewRotation(0.7, r3.Vec{X: 1, Y: 2, Z: 3}))
	b := a.WithOrigin(r3.Vec{X: 5, Y: -3})
	mid := frame.Interpolate(a, b, 0.5)
	assert.LessOrEqual(t, frame.AngleBetween(mid.Orientation(), a.Orientation()), 1e-9)
	assert.InDelta(t, 3.0, mid.Origin.X, 1e-12)
}

func TestLinearAutomaticConfiguration(t *testing.T) {
	s, g := testGenerator(t, 5)
	from := startFrame(s)
	to := from.WithOrigin(r3.Add(from.Origin, r3.Vec{Z: 50}))
	target := cartesian(s, "up", to)
	// A wrong configuration is ignored when monitoring is off.
	target.Configuration ^= kinematics.ShoulderBack
	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		ConfigurationControl{Linear: false, Joint: false},
		Movement{Name: "up", Type: Linear, Target: target, Speed: Speed{TCP: 10}},
	})
	require.NoError(t, err)
	require.Empty(t, tr.Errors)
	last := tr.Robot[len(tr.Robot)-1]
	assert.InDelta(t, home[0], last[0], 10, "axis 1 should stay near its start")
	assert.True(t, tr.TCP[len(tr.TCP)-1].Equal(to, 1e-6))
	assert.False(t, tr.Final.ConfLinear)
}

func circleProgram(s *kinematics.Solver, mode CircularMode, viaAngle float64) ([]Command, r3.Vec) {
	from := startFrame(s)
	const radius = 100
	center := r3.Sub(from.Origin, r3.Vec{Y: radius})
	at := func(deg float64) frame.Frame {
		a := deg * math.Pi / 180
		return from.WithOrigin(r3.Add(center, r3.Vec{X: radius * math.Cos(a), Y: radius * math.Sin(a)}))
	}
	via := cartesian(s, "via", at(viaAngle))
	return []Command{
		moveAbs("home", home),
		SetCircularMode{Mode: mode},
		Movement{
			Name:        "arc",
			Type:        Circular,
			Target:      cartesian(s, "end", at(0)),
			CirclePoint: &via,
			Speed:       Speed{TCP: 100},
		},
	}, center
}

func TestCircularMove(t *testing.T) {
	for _, mode := range []CircularMode{PathFrame, ObjectFrame, CircPointOri} {
		t.Run(mode.String(), func(t *testing.T) {
			s, g := testGenerator(t, 20)
			cmds, center := circleProgram(s, mode, 45)
			tr, err := g.Generate(cmds)
			require.NoError(t, err)
			require.Empty(t, tr.Errors)
			require.Len(t, tr.TCP, 21)
			for i, f := range tr.TCP {
				assert.InDelta(t, 100, r3.Norm(r3.Sub(f.Origin, center)), 1e-6, "step %d", i)
			}
			end := cmds[2].(Movement).Target.(kinematics.RobotTarget).Frame
			assert.True(t, tr.TCP[20].Equal(end, 1e-6))
			assert.InDelta(t, 50*math.Pi/100, tr.Time, 0.01)
			assert.Empty(t, tr.Warnings)
		})
	}
}

func TestCircularModeFallback(t *testing.T) {
	s, g := testGenerator(t, 8)
	cmds, _ := circleProgram(s, Wrist45, 45)
	got, err := g.Generate(cmds)
	require.NoError(t, err)
	assert.True(t, hasWarning(got, "not supported"), "warnings: %q", got.Warnings)

	cmds, _ = circleProgram(s, PathFrame, 45)
	want, err := g.Generate(cmds)
	require.NoError(t, err)
	if diff := cmp.Diff(want.Robot, got.Robot, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("fallback differs from PathFrame (-want +got):\n%s", diff)
	}
}

func TestCircPointOriSplit(t *testing.T) {
	s, g := testGenerator(t, 8)
	cmds, _ := circleProgram(s, CircPointOri, 85)
	tr, err := g.Generate(cmds)
	require.NoError(t, err)
	assert.True(t, hasWarning(tr, "outside [0.25, 0.75]"), "warnings: %q", tr.Warnings)
}

func TestCircularCloseThroughPoint(t *testing.T) {
	s, g := testGenerator(t, 10)
	from := startFrame(s)
	via := cartesian(s, "via", from.WithOrigin(r3.Add(from.Origin, r3.Vec{Y: 0.05})))
	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{
			Name:        "tight",
			Type:        Circular,
			Target:      cartesian(s, "end", from.WithOrigin(r3.Add(from.Origin, r3.Vec{X: 100}))),
			CirclePoint: &via,
			Speed:       Speed{TCP: 100},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, tr.Errors)
	assert.True(t, hasWarning(tr, "closer than 0.1"), "warnings: %q", tr.Warnings)
}

func TestCircularErrors(t *testing.T) {
	s, g := testGenerator(t, 10)
	from := startFrame(s)
	end := cartesian(s, "end", from.WithOrigin(r3.Add(from.Origin, r3.Vec{X: 100})))
	mid := cartesian(s, "mid", from.WithOrigin(r3.Add(from.Origin, r3.Vec{X: 50})))

	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{Name: "no point", Type: Circular, Target: end},
		Movement{Name: "colinear", Type: Circular, Target: end, CirclePoint: &mid},
		Movement{Name: "line", Type: Linear, Target: end, Speed: Speed{TCP: 10}},
	})
	require.NoError(t, err)
	require.Len(t, tr.Errors, 2)
	assert.ErrorIs(t, tr.Errors[0], ErrCirclePoint)
	assert.ErrorIs(t, tr.Errors[1], ErrArc)
	// The program carries on from the last good position.
	require.Len(t, tr.Segments, 2)
	assert.True(t, tr.TCP[len(tr.TCP)-1].Equal(end.Frame, 1e-6))
}

func TestCoincidentThroughPoint(t *testing.T) {
	s, g := testGenerator(t, 10)
	from := startFrame(s)
	via := cartesian(s, "via", from)
	cmd := Movement{
		Name:        "pinched",
		Type:        Circular,
		Target:      cartesian(s, "end", from.WithOrigin(r3.Add(from.Origin, r3.Vec{X: 100}))),
		CirclePoint: &via,
		Speed:       Speed{TCP: 100},
	}
	tr, err := g.Generate([]Command{moveAbs("home", home), cmd})
	require.NoError(t, err)
	require.Len(t, tr.Errors, 1)
	assert.ErrorIs(t, tr.Errors[0], ErrArc)
	assert.True(t, hasWarning(tr, "closer than 0.1"), "warnings: %q", tr.Warnings)

	st, _, err := g.Step(g.Initial(), moveAbs("home", home))
	require.NoError(t, err)
	next, seg, err := g.Step(st, cmd)
	assert.ErrorIs(t, err, ErrArc)
	assert.Empty(t, seg.Robot)
	assert.NotEmpty(t, seg.Warnings)
	assert.Equal(t, st, next)
}

func TestAbortedSegmentIsLogged(t *testing.T) {
	logger, logs := golog.NewObservedTestLogger(t)
	s := testSolver(t)
	g, err := NewGenerator(s, 4, logger)
	require.NoError(t, err)
	_, err = g.Generate([]Command{
		moveAbs("home", home),
		Movement{Name: "no point", Type: Circular, Target: cartesian(s, "end", startFrame(s))},
	})
	require.NoError(t, err)
	aborted := logs.FilterMessage("segment aborted")
	require.Equal(t, 1, aborted.Len())
	assert.Equal(t, int64(1), aborted.All()[0].ContextMap()["command"])
}

func TestMoveTargetMismatch(t *testing.T) {
	s, g := testGenerator(t, 3)
	st := g.Initial()
	_, _, err := g.Step(st, Movement{Name: "abs", Type: AbsoluteJoint, Target: cartesian(s, "p", startFrame(s))})
	assert.ErrorIs(t, err, ErrMoveTarget)

	st.Started = true
	_, _, err = g.Step(st, Movement{Name: "lin", Type: Linear, Target: kinematics.JointTarget{Robot: away}})
	assert.ErrorIs(t, err, ErrMoveTarget)
}

func TestStepIsReentrant(t *testing.T) {
	_, g := testGenerator(t, 6)
	st, _, err := g.Step(g.Initial(), moveAbs("home", home))
	require.NoError(t, err)
	cmd := Movement{
		Name:   "away",
		Type:   Joint,
		Target: kinematics.JointTarget{Name: "away", Robot: away, External: robot.NewExternalJointPosition()},
	}
	st1, seg1, err := g.Step(st, cmd)
	require.NoError(t, err)
	st2, seg2, err := g.Step(st, cmd)
	require.NoError(t, err)
	if diff := cmp.Diff(seg1, seg2); diff != "" {
		t.Errorf("segments differ:\n%s", diff)
	}
	assert.Equal(t, st1.Robot, st2.Robot)
	assert.Equal(t, home, st.Robot, "input state was modified")
}

func TestStateCommands(t *testing.T) {
	s, g := testGenerator(t, 3)
	tool := robot.Tool{Name: "torch", TCP: frame.Translation(r3.Vec{Z: 150})}
	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		OverrideTool{Tool: tool},
		Wait{Seconds: 2},
		Movement{
			Name:   "away",
			Type:   Joint,
			Target: kinematics.JointTarget{Name: "away", Robot: away, External: robot.NewExternalJointPosition()},
			Time:   3,
		},
		Wait{Seconds: -1},
	})
	require.NoError(t, err)
	assert.InDelta(t, 5, tr.Time, 1e-12)
	assert.Equal(t, "torch", tr.Final.Tool.Name)
	want := s.Forward(away, robot.NewExternalJointPosition()).Flange.Mul(tool.TCP)
	assert.True(t, tr.Final.TCP.Equal(want, 1e-9))
	assert.True(t, hasWarning(tr, "negative wait"))
}

func TestWarningsAreDistinct(t *testing.T) {
	_, g := testGenerator(t, 5)
	bad := robot.RobotJointPosition{0, 0, 0, 0, 130, 0}
	tr, err := g.Generate([]Command{
		moveAbs("bad", bad),
		moveAbs("bad again", bad),
	})
	require.NoError(t, err)
	assert.False(t, tr.InLimitsAll())
	n := 0
	for _, w := range tr.Warnings {
		if strings.Contains(w, "robot axis 5") {
			n++
		}
	}
	assert.Equal(t, 1, n, "warnings: %q", tr.Warnings)
}

func TestParseCircularMode(t *testing.T) {
	m, err := ParseCircularMode("CircPointOri")
	require.NoError(t, err)
	assert.Equal(t, CircPointOri, m)
	_, err = ParseCircularMode("Spiral")
	assert.ErrorIs(t, err, ErrCircularMode)
}

func streamProgram() []Command {
	return []Command{
		moveAbs("home", home),
		Wait{Seconds: 2},
		Movement{
			Name:   "away",
			Type:   Joint,
			Target: kinematics.JointTarget{Name: "away", Robot: away, External: robot.NewExternalJointPosition()},
			Speed:  Speed{TCP: 250},
		},
		Movement{Name: "broken", Type: Circular, Target: kinematics.JointTarget{Name: "broken", Robot: home}},
	}
}

func TestStreamMatchesGenerate(t *testing.T) {
	_, g := testGenerator(t, 6)
	tr, err := g.Generate(streamProgram())
	require.NoError(t, err)

	paces, err := g.Stream(streamProgram(), nil)
	require.NoError(t, err)
	var got []Pace
	for p := range paces {
		got = append(got, p)
	}
	require.Len(t, got, len(tr.Robot)+1)

	for i, q := range tr.Robot {
		assert.Equal(t, q, got[i].Robot, "pace %d", i)
		assert.Nil(t, got[i].Err)
	}
	assert.Equal(t, 0, got[0].Command)
	assert.Equal(t, 2, got[1].Command)
	assert.Zero(t, got[0].Time)
	assert.Greater(t, got[1].Time, 2.0)
	for i := 2; i < len(tr.Robot); i++ {
		assert.Greater(t, got[i].Time, got[i-1].Time)
	}
	assert.InDelta(t, tr.Time, got[len(tr.Robot)-1].Time, 1e-9)

	last := got[len(got)-1]
	assert.Equal(t, 3, last.Command)
	assert.Equal(t, -1.0, last.Time)
	assert.ErrorIs(t, last.Err, ErrMoveTarget)
}

func TestStreamQuit(t *testing.T) {
	_, g := testGenerator(t, 50)
	quitter := make(chan struct{})
	paces, err := g.Stream(streamProgram(), quitter)
	require.NoError(t, err)
	<-paces
	close(quitter)
	n := 0
	for range paces {
		n++
	}
	assert.Less(t, n, 50)

	_, err = g.Stream(nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLinearWristFlip(t *testing.T) {
	s, g := testGenerator(t, 6)
	from := startFrame(s)
	end := cartesian(s, "flipped", from.WithOrigin(r3.Add(from.Origin, r3.Vec{X: 50})))
	end.Configuration ^= kinematics.WristFlipped

	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{Name: "flip", Type: Linear, Target: end, Speed: Speed{TCP: 100}},
	})
	require.NoError(t, err)
	require.Empty(t, tr.Errors)
	assert.Greater(t, tr.Robot[0][4], 0.0)
	assert.Less(t, tr.Final.Robot[4], 0.0)
	assert.True(t, hasWarning(tr, "passes through a wrist singularity"), "warnings: %q", tr.Warnings)
}

func TestWorkObjectOnMovingAxis(t *testing.T) {
	r := testArm(t)
	r.ExternalAxes = []robot.ExternalAxis{
		{Name: "track", Kind: robot.Linear, LogicID: 0, Limits: robot.Interval{Min: 0, Max: 1000}, MovesRobot: true, Direction: r3.Vec{X: 1}},
		{Name: "table", Kind: robot.Rotational, LogicID: 1, Limits: robot.Interval{Min: -180, Max: 180}, Origin: r3.Vec{X: 1000, Y: 200}, Direction: r3.Vec{Z: 1}},
	}
	s, err := kinematics.New(r, golog.NewTestLogger(t))
	require.NoError(t, err)
	g, err := NewGenerator(s, 10, golog.NewTestLogger(t))
	require.NoError(t, err)

	wo := kinematics.WorkObject{Name: "fixture", Frame: frame.Translation(r3.Vec{X: 1000, Y: 200, Z: 300}), Axis: "table"}
	start, err := wo.Pose(r, r.ResolveExternal(robot.NewExternalJointPosition()))
	require.NoError(t, err)
	held := startFrame(s).In(start)
	c, _ := s.Configuration(home)

	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{
			Name:       "ride",
			Type:       Linear,
			Target:     kinematics.RobotTarget{Name: "held", Frame: held, Configuration: c, External: robot.NewExternalJointPosition(100, 30)},
			WorkObject: wo,
			Speed:      Speed{TCP: 100},
		},
	})
	require.NoError(t, err)
	require.Empty(t, tr.Errors)
	require.Len(t, tr.Segments, 2)

	seg := tr.Segments[1]
	for i := seg.Start; i < seg.End; i++ {
		pose, err := wo.Pose(r, tr.External[i])
		require.NoError(t, err)
		local := tr.TCP[i].In(pose)
		assert.True(t, local.Equal(held, 1e-6), "step %d: local TCP %+v", i, local)
	}
	last := tr.External[seg.End-1]
	assert.InDelta(t, 100, last[0], 1e-6)
	assert.InDelta(t, 30, last[1], 1e-9)
	mid := tr.External[seg.Start+4]
	assert.InDelta(t, 50, mid[0], 1e-6)
	assert.InDelta(t, 15, mid[1], 1e-9)
}

func TestJointTargetKeepsValues(t *testing.T) {
	_, g := testGenerator(t, 4)
	wide := robot.RobotJointPosition{0, 0, 0, 0, 45, 270}
	tr, err := g.Generate([]Command{
		moveAbs("home", home),
		Movement{
			Name:   "wide",
			Type:   Joint,
			Target: kinematics.JointTarget{Name: "wide", Robot: wide, External: robot.NewExternalJointPosition()},
			Speed:  Speed{TCP: 100},
		},
	})
	require.NoError(t, err)
	assert.True(t, tr.InLimitsAll())
	assert.Equal(t, wide, tr.Final.Robot)
	for i, want := range []float64{67.5, 135, 202.5, 270} {
		assert.InDelta(t, want, tr.Robot[i+1][5], 1e-9)
	}
}

func TestStateCommandsBeforeStart(t *testing.T) {
	_, g := testGenerator(t, 3)
	tr, err := g.Generate([]Command{
		ConfigurationControl{Linear: false, Joint: false},
		Wait{Seconds: 1},
		moveAbs("home", home),
	})
	require.NoError(t, err)
	assert.Empty(t, tr.Warnings)
	assert.Equal(t, home, tr.Final.Robot)
	assert.False(t, tr.Final.ConfLinear)
}
