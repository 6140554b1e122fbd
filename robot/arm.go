package robot

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

// ArmGeometry holds the seven lengths describing an ortho-parallel
// arm with a spherical wrist, measured in its canonical zero pose
// (lower arm, upper arm and wrist pointing up along the base Z axis):
//
//	A1 = forward offset of axis 2 from axis 1
//	A2 = forward offset of the wrist center from axis 3
//	B  = sideways offset of the wrist center
//	C1 = height of axis 2 above the base
//	C2 = length of the lower arm, axis 2 to axis 3
//	C3 = height of the wrist center above axis 3
//	C4 = distance from the wrist center to the flange
type ArmGeometry struct {
	A1, A2, B, C1, C2, C3, C4 float64
}

// canonical returns the joint axis directions and positions in the
// canonical zero pose, in base coordinates.
func (g ArmGeometry) canonical() (origins [6]r3.Vec, axes [6]r3.Vec, flange r3.Vec) {
	wrist := r3.Vec{X: g.A1 + g.A2, Y: g.B, Z: g.C1 + g.C2 + g.C3}
	flange = r3.Add(wrist, r3.Vec{Z: g.C4})
	origins = [6]r3.Vec{
		{},
		{X: g.A1, Z: g.C1},
		{X: g.A1, Z: g.C1 + g.C2},
		wrist,
		wrist,
		flange,
	}
	axes = [6]r3.Vec{frame.UnitZ, frame.UnitY, frame.UnitY, frame.UnitZ, frame.UnitY, frame.UnitZ}
	return origins, axes, flange
}

// NewArm builds a robot model from its arm geometry. The joint and
// mounting frames are generated for the pose in which every joint
// value is zero, which differs from the canonical zero pose by the
// calibration offsets. The returned robot carries no tool and no
// external axes.
func NewArm(name string, base frame.Frame, g ArmGeometry, cal Calibration, limits [6]Interval) (*Robot, error) {
	origins, axes, flangePos := g.canonical()

	var joints [6]frame.Frame
	for i := range joints {
		joints[i] = frame.AlongZ(origins[i], r3.Scale(cal.Sign(i), axes[i]))
	}
	flange := frame.Translation(flangePos)

	// Move from the canonical zero pose to the pose where the joint
	// values are zero: joint i turns by Sign*Offset about its own Z.
	t := frame.World
	for i := range joints {
		posed := t.Mul(joints[i])
		turn := cal.Sign(i) * cal.Offsets[i] * math.Pi / 180
		joints[i] = posed
		t = frame.RotationAbout(posed.Origin, posed.ZAxis(), turn).Mul(t)
	}
	flange = t.Mul(flange)

	r := &Robot{
		Name:        name,
		Base:        base,
		Mounting:    base.Mul(flange),
		Calibration: cal,
	}
	for i := range joints {
		r.Joints[i] = Joint{
			Frame:  base.Mul(joints[i]),
			Limits: limits[i],
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
