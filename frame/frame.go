// Package frame holds the rigid coordinate frames used to describe a
// robot, its joints, tools and targets.
//
// A Frame is an origin plus an orientation. The orientation is held
// as a unit quaternion, the columns of its rotation matrix are the X,
// Y and Z axes of the frame expressed in the parent coordinates. A
// Frame doubles as the rigid transform mapping local coordinates of
// the frame into parent coordinates, so frames compose with Mul.
//
// The zero value of a Frame is the world frame.
package frame

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerate is returned when axis vectors cannot span a frame.
var ErrDegenerate = errors.New("degenerate frame axes")

// Unit axis vectors.
var (
	UnitX = r3.Vec{X: 1}
	UnitY = r3.Vec{Y: 1}
	UnitZ = r3.Vec{Z: 1}
)

// Frame is a right handed orthonormal coordinate frame.
type Frame struct {
	Origin   r3.Vec
	Rotation r3.Rotation
}

// World is the identity frame.
var World = Frame{Rotation: r3.Rotation{Real: 1}}

// New returns a frame at origin with the given orientation. The
// orientation is normalized.
func New(origin r3.Vec, rot r3.Rotation) Frame {
	return Frame{Origin: origin, Rotation: normalize(rot)}
}

// FromAxes builds a frame at origin whose X axis points along x and
// whose XY plane contains y. The axes need not be unit length or
// orthogonal.
func FromAxes(origin, x, y r3.Vec) (Frame, error) {
	if r3.Norm(x) < 1e-12 {
		return Frame{}, errors.Wrap(ErrDegenerate, "zero x axis")
	}
	ux := r3.Unit(x)
	y = r3.Sub(y, r3.Scale(r3.Dot(y, ux), ux))
	if r3.Norm(y) < 1e-12 {
		return Frame{}, errors.Wrap(ErrDegenerate, "y axis parallel to x axis")
	}
	uy := r3.Unit(y)
	uz := r3.Cross(ux, uy)
	return Frame{Origin: origin, Rotation: FromColumns(ux, uy, uz)}, nil
}

// AlongZ returns a frame at origin whose Z axis points along z. The
// X axis is chosen perpendicular to z, leaning towards the world X
// axis.
func AlongZ(origin, z r3.Vec) Frame {
	uz := r3.Unit(z)
	a := UnitX
	if math.Abs(uz.X) > 0.9 {
		a = UnitY
	}
	x := r3.Unit(r3.Sub(a, r3.Scale(r3.Dot(a, uz), uz)))
	return Frame{Origin: origin, Rotation: FromColumns(x, r3.Cross(uz, x), uz)}
}

// Translation returns the frame that shifts by v.
func Translation(v r3.Vec) Frame {
	return Frame{Origin: v, Rotation: r3.Rotation{Real: 1}}
}

// RotationAbout returns the transform that rotates by angle radians
// about the line through point with direction axis.
func RotationAbout(point, axis r3.Vec, angle float64) Frame {
	rot := r3.NewRotation(angle, axis)
	return Frame{
		Origin:   r3.Sub(point, rot.Rotate(point)),
		Rotation: rot,
	}
}

func (f Frame) rot() r3.Rotation {
	if f.Rotation == (r3.Rotation{}) {
		return r3.Rotation{Real: 1}
	}
	return f.Rotation
}

// Orientation returns the orientation of f as a unit quaternion. The
// zero rotation is reported as the identity.
func (f Frame) Orientation() r3.Rotation {
	return f.rot()
}

// Apply maps the point p from f local coordinates into parent
// coordinates.
func (f Frame) Apply(p r3.Vec) r3.Vec {
	return r3.Add(f.Origin, f.rot().Rotate(p))
}

// ApplyDir rotates the direction v from f local coordinates into
// parent coordinates.
func (f Frame) ApplyDir(v r3.Vec) r3.Vec {
	return f.rot().Rotate(v)
}

// Mul composes two transforms: the result maps g local coordinates
// through g and then f.
func (f Frame) Mul(g Frame) Frame {
	q := quat.Mul(quat.Number(f.rot()), quat.Number(g.rot()))
	return Frame{
		Origin:   f.Apply(g.Origin),
		Rotation: normalize(r3.Rotation(q)),
	}
}

// Inverse returns the transform that undoes f.
func (f Frame) Inverse() Frame {
	inv := r3.Rotation(quat.Conj(quat.Number(f.rot())))
	return Frame{
		Origin:   r3.Scale(-1, inv.Rotate(f.Origin)),
		Rotation: inv,
	}
}

// In expresses f in the coordinates of ref.
func (f Frame) In(ref Frame) Frame {
	return ref.Inverse().Mul(f)
}

// XAxis returns the X axis of f in parent coordinates.
func (f Frame) XAxis() r3.Vec { return f.rot().Rotate(UnitX) }

// YAxis returns the Y axis of f in parent coordinates.
func (f Frame) YAxis() r3.Vec { return f.rot().Rotate(UnitY) }

// ZAxis returns the Z axis of f in parent coordinates.
func (f Frame) ZAxis() r3.Vec { return f.rot().Rotate(UnitZ) }

// WithOrigin returns a copy of f moved to origin.
func (f Frame) WithOrigin(origin r3.Vec) Frame {
	return Frame{Origin: origin, Rotation: f.rot()}
}

// Equal reports whether f and g agree in origin within tol length
// units and in orientation within tol radians.
func (f Frame) Equal(g Frame, tol float64) bool {
	return r3.Norm(r3.Sub(f.Origin, g.Origin)) <= tol && AngleBetween(f.rot(), g.rot()) <= tol
}

// FromColumns returns the rotation whose matrix has the columns x, y
// and z. The columns are expected to be orthonormal.
func FromColumns(x, y, z r3.Vec) r3.Rotation {
	return FromMatrix(r3.NewMat([]float64{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	}))
}

// FromMatrix converts an orthonormal rotation matrix to a unit
// quaternion.
func FromMatrix(m *r3.Mat) r3.Rotation {
	m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	m20, m21, m22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return normalize(r3.Rotation(q))
}

// AngleBetween returns the magnitude, in radians within [0,pi], of
// the rotation taking a to b.
func AngleBetween(a, b r3.Rotation) float64 {
	r := quat.Mul(quat.Conj(quat.Number(normalize(a))), quat.Number(normalize(b)))
	v := math.Sqrt(r.Imag*r.Imag + r.Jmag*r.Jmag + r.Kmag*r.Kmag)
	return 2 * math.Atan2(v, math.Abs(r.Real))
}

func dot(a, b r3.Rotation) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func normalize(r r3.Rotation) r3.Rotation {
	q := quat.Number(r)
	n := quat.Abs(q)
	if n == 0 {
		return r3.Rotation{Real: 1}
	}
	if n != 1 {
		q = quat.Scale(1/n, q)
	}
	return r3.Rotation(q)
}
