package robot

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestNormalizeAngle(t *testing.T) {
	vs := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{540, 180},
		{725, 5},
	}
	for i, v := range vs {
		if got := NormalizeAngle(v.in); math.Abs(got-v.want) > 1e-12 {
			t.Errorf("test=%d: NormalizeAngle(%g) got=%g want=%g", i, v.in, got, v.want)
		}
	}
}

func TestRobotJointPosition(t *testing.T) {
	p := RobotJointPosition{10, 20, 30, 40, 50, 60}
	q := RobotJointPosition{20, 0, 30, -40, 50, 260}
	if got, want := p.Lerp(q, 0.5), (RobotJointPosition{15, 10, 30, 0, 50, 160}); got != want {
		t.Errorf("Lerp got=%v want=%v", got, want)
	}
	if got, want := q.Normalized(), (RobotJointPosition{20, 0, 30, -40, 50, -100}); got != want {
		t.Errorf("Normalized got=%v want=%v", got, want)
	}
	if got := p.String(); got != "[10.000, 20.000, 30.000, 40.000, 50.000, 60.000]" {
		t.Errorf("String got=%q", got)
	}
	if s := p.Slice(); len(s) != 6 || s[5] != 60 {
		t.Errorf("Slice got=%v", s)
	}
}

func TestExternalJointPosition(t *testing.T) {
	e := NewExternalJointPosition(100, Undefined, 30)
	if !e.IsDefined(0) || e.IsDefined(1) || !e.IsDefined(2) || e.IsDefined(3) || e.IsDefined(6) || e.IsDefined(-1) {
		t.Fatalf("IsDefined mismatch for %v", e)
	}
	f := NewExternalJointPosition(200, 5, 90, 1)
	m := e.Lerp(f, 0.25)
	if m[0] != 125 || m[2] != 45 {
		t.Errorf("Lerp got=%v", m)
	}
	for _, i := range []int{1, 3, 4, 5} {
		if m.IsDefined(i) {
			t.Errorf("axis %d should be undefined after Lerp: %v", i, m)
		}
	}
	if d := f.Sub(e); d[0] != 100 || d.IsDefined(1) {
		t.Errorf("Sub got=%v", d)
	}
	if s := e.Scale(2); s[0] != 200 || s.IsDefined(1) {
		t.Errorf("Scale got=%v", s)
	}
}

func TestInterval(t *testing.T) {
	vs := []struct {
		i    Interval
		zero float64
	}{
		{Interval{-10, 10}, 0},
		{Interval{5, 100}, 5},
		{Interval{-100, -20}, -20},
		{Interval{0, 0}, 0},
	}
	for n, v := range vs {
		if got := v.i.ClosestToZero(); got != v.zero {
			t.Errorf("test=%d: %v ClosestToZero got=%g want=%g", n, v.i, got, v.zero)
		}
	}
	i := Interval{-10, 10}
	if !i.Contains(10) || !i.Contains(10+1e-12) || i.Contains(10.001) {
		t.Errorf("Contains misbehaves at the boundary of %v", i)
	}
	if got := i.Clamp(-20); got != -10 {
		t.Errorf("Clamp got=%g", got)
	}
}

func TestExternalAxisMotion(t *testing.T) {
	track := ExternalAxis{Name: "track", Kind: Linear, Limits: Interval{0, 1000}, Direction: r3.Vec{X: 2}}
	if got := track.Motion(250).Apply(r3.Vec{Y: 1}); !near(got, r3.Vec{X: 250, Y: 1}) {
		t.Errorf("track motion got=%v", got)
	}
	if got := track.Motion(5000).Apply(r3.Vec{}); !near(got, r3.Vec{X: 1000}) {
		t.Errorf("track motion is not clamped: %v", got)
	}
	if got := track.Displacement(r3.Vec{X: 10, Y: 4}, r3.Vec{X: 60, Y: -3}); math.Abs(got-50) > 1e-12 {
		t.Errorf("track displacement got=%g", got)
	}
	if got := track.Project(r3.Vec{}, r3.Vec{X: -40, Z: 9}); got != -40 {
		t.Errorf("track projection got=%g", got)
	}

	table := ExternalAxis{Name: "table", Kind: Rotational, Limits: Interval{-180, 180}, Origin: r3.Vec{X: 100}, Direction: r3.Vec{Z: 1}}
	if got := table.Motion(90).Apply(r3.Vec{X: 200, Z: 5}); !near(got, r3.Vec{X: 100, Y: 100, Z: 5}) {
		t.Errorf("table motion got=%v", got)
	}
	if got := table.Displacement(r3.Vec{X: 200}, r3.Vec{X: 100, Y: -50, Z: 7}); math.Abs(got+90) > 1e-9 {
		t.Errorf("table displacement got=%g", got)
	}
	if got := table.Displacement(r3.Vec{X: 100, Z: 3}, r3.Vec{X: 200}); got != 0 {
		t.Errorf("displacement of an on-axis point got=%g", got)
	}
	att := table.AttachmentFrame(90)
	if !near(att.Origin, table.Origin) || !near(att.ZAxis(), frame.UnitZ) || !near(att.XAxis(), frame.UnitY) {
		t.Errorf("table attachment got=%+v", att)
	}
}

func testCell() *Robot {
	return &Robot{
		Name: "cell",
		Base: frame.World,
		ExternalAxes: []ExternalAxis{
			{Name: "track", Kind: Linear, LogicID: 0, Limits: Interval{100, 2000}, MovesRobot: true, Direction: r3.Vec{Y: 1}},
			{Name: "table", Kind: Rotational, LogicID: 2, Limits: Interval{-90, 90}, Origin: r3.Vec{X: 1000}, Direction: r3.Vec{Z: 1}},
		},
	}
}

func TestExternalResolution(t *testing.T) {
	r := testCell()
	e := r.ResolveExternal(NewExternalJointPosition())
	if e[0] != 100 || e[2] != 0 || e.IsDefined(1) {
		t.Errorf("ResolveExternal got=%v", e)
	}
	if b := r.EffectiveBase(NewExternalJointPosition()); !near(b.Origin, r3.Vec{Y: 100}) {
		t.Errorf("default base got=%v", b.Origin)
	}
	if b := r.EffectiveBase(NewExternalJointPosition(700)); !near(b.Origin, r3.Vec{Y: 700}) {
		t.Errorf("moved base got=%v", b.Origin)
	}
	a, ok := r.RobotMovingAxis()
	if !ok || a.Name != "track" {
		t.Errorf("RobotMovingAxis got=%v, %v", a.Name, ok)
	}
	if _, err := r.Axis("gantry"); !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("Axis(gantry) got err=%v", err)
	}
}

func TestCheckLimits(t *testing.T) {
	r := testCell()
	for i := range r.Joints {
		r.Joints[i].Limits = Interval{-90, 90}
	}
	msgs := r.CheckLimits(RobotJointPosition{0, 100, 0, 0, 0, -95}, NewExternalJointPosition(50, 0, 45))
	if len(msgs) != 3 {
		t.Fatalf("got %d messages: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "robot axis 2") || !strings.Contains(msgs[1], "robot axis 6") || !strings.Contains(msgs[2], `"track"`) {
		t.Errorf("unexpected messages %q", msgs)
	}
}

func TestValidate(t *testing.T) {
	vs := []struct {
		name string
		edit func(r *Robot)
		want error
	}{
		{"ok", func(r *Robot) {}, nil},
		{"logic id", func(r *Robot) { r.ExternalAxes[1].LogicID = 6 }, ErrLogicID},
		{"shared id", func(r *Robot) { r.ExternalAxes[1].LogicID = 0 }, ErrDuplicateAxis},
		{"shared name", func(r *Robot) { r.ExternalAxes[1].Name = "track" }, ErrDuplicateAxis},
		{"two movers", func(r *Robot) { r.ExternalAxes[1].MovesRobot = true }, ErrTooManyMovers},
		{"direction", func(r *Robot) { r.ExternalAxes[1].Direction = r3.Vec{} }, ErrAxisDirection},
		{"external limits", func(r *Robot) { r.ExternalAxes[0].Limits = Interval{1, 0} }, ErrBadLimits},
		{"robot limits", func(r *Robot) { r.Joints[3].Limits = Interval{1, 0} }, ErrBadLimits},
		{"sign", func(r *Robot) { r.Calibration.Signs[4] = 2 }, ErrBadCalibration},
	}
	for _, v := range vs {
		r := testCell()
		v.edit(r)
		err := r.Validate()
		if v.want == nil {
			if err != nil {
				t.Errorf("%s: unexpected error %v", v.name, err)
			}
			continue
		}
		if !errors.Is(err, v.want) {
			t.Errorf("%s: got err=%v want %v", v.name, err, v.want)
		}
	}
}

func TestCloneIndependence(t *testing.T) {
	r := testCell()
	c := r.WithTool(Tool{Name: "gripper", TCP: frame.Translation(r3.Vec{Z: 100})})
	c.ExternalAxes[0].Name = "changed"
	if r.Tool.Name != "" || r.ExternalAxes[0].Name != "track" {
		t.Errorf("original robot modified: %+v", r)
	}
	if c.Tool.Name != "gripper" {
		t.Errorf("tool not applied: %+v", c.Tool)
	}
}

func TestNewArm(t *testing.T) {
	g := ArmGeometry{A1: 100, A2: -135, C1: 615, C2: 705, C3: 755, C4: 85}
	var limits [6]Interval
	for i := range limits {
		limits[i] = Interval{-180, 180}
	}
	base := frame.Translation(r3.Vec{X: 10, Y: 20, Z: 30})

	r, err := NewArm("upright", base, g, Calibration{}, limits)
	if err != nil {
		t.Fatalf("NewArm failed: %v", err)
	}
	wantFlange := r3.Vec{X: 10 + 100 - 135, Y: 20, Z: 30 + 615 + 705 + 755 + 85}
	if !near(r.Mounting.Origin, wantFlange) {
		t.Errorf("flange got=%v want=%v", r.Mounting.Origin, wantFlange)
	}
	if !near(r.Joints[1].Frame.ZAxis(), frame.UnitY) || !near(r.Joints[1].Frame.Origin, r3.Vec{X: 110, Y: 20, Z: 645}) {
		t.Errorf("axis 2 frame got=%+v", r.Joints[1].Frame)
	}

	// A +90 offset on axis 3 tips the upper arm forward at zero.
	cal := Calibration{Offsets: [6]float64{0, 0, 90, 0, 0, 0}}
	r, err = NewArm("forward", frame.World, g, cal, limits)
	if err != nil {
		t.Fatalf("NewArm failed: %v", err)
	}
	wantFlange = r3.Vec{X: 100 + 755 + 85, Z: 615 + 705 + 135}
	if !near(r.Mounting.Origin, wantFlange) {
		t.Errorf("flange got=%v want=%v", r.Mounting.Origin, wantFlange)
	}
	if !near(r.Mounting.ZAxis(), frame.UnitX) {
		t.Errorf("flange Z got=%v", r.Mounting.ZAxis())
	}
	if !near(r.Joints[3].Frame.ZAxis(), frame.UnitX) {
		t.Errorf("axis 4 Z got=%v", r.Joints[3].Frame.ZAxis())
	}

	cal.Signs[0] = -1
	r, err = NewArm("mirrored", frame.World, g, cal, limits)
	if err != nil {
		t.Fatalf("NewArm failed: %v", err)
	}
	if !near(r.Joints[0].Frame.ZAxis(), r3.Vec{Z: -1}) {
		t.Errorf("axis 1 Z with negative sign got=%v", r.Joints[0].Frame.ZAxis())
	}

	cal.Signs[0] = 3
	if _, err := NewArm("bad", frame.World, g, cal, limits); !errors.Is(err, ErrBadCalibration) {
		t.Errorf("expected ErrBadCalibration, got %v", err)
	}
}
