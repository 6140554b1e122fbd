package path

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"zappem.net/pub/kinematics/armpath/frame"
)

// Circular orientation blending. None of these reproduce a controller
// exactly; they approximate the orientation the tool shows along the
// arc.

// pathFrameBlend turns both end orientations along the arc to the
// current position, so that each keeps its attitude relative to the
// path, and then blends them.
func pathFrameBlend(r0, r2 r3.Rotation, normal r3.Vec, sweep, s float64) r3.Rotation {
	a := frame.Rotate(r0, s*sweep, normal)
	b := frame.Rotate(r2, -(1-s)*sweep, normal)
	return frame.Slerp(a, b, s)
}

// orienter returns the TCP orientation at arc fraction s.
type orienter func(s float64) r3.Rotation

// circularOrienter builds the blending function for mode. r1 is the
// orientation of the circle point. Any warnings about the blend are
// returned alongside.
func circularOrienter(name string, mode CircularMode, c arc, r0, r1, r2 r3.Rotation) (orienter, []string) {
	var ws []string
	if !mode.supported() {
		ws = append(ws, fmt.Sprintf("circular move %q: mode %v is not supported, using %v", name, mode, PathFrame))
		mode = PathFrame
	}
	switch mode {
	case ObjectFrame:
		return func(s float64) r3.Rotation {
			return frame.Slerp(r0, r2, s)
		}, ws
	case CircPointOri:
		s1 := c.via / c.sweep
		if s1 < 0.25 || s1 > 0.75 {
			ws = append(ws, fmt.Sprintf("circular move %q: circle point at %.2f of the arc, outside [0.25, 0.75]", name, s1))
		}
		return func(s float64) r3.Rotation {
			if s <= s1 {
				return pathFrameBlend(r0, r1, c.normal, c.via, s/s1)
			}
			return pathFrameBlend(r1, r2, c.normal, c.sweep-c.via, (s-s1)/(1-s1))
		}, ws
	}
	return func(s float64) r3.Rotation {
		return pathFrameBlend(r0, r2, c.normal, c.sweep, s)
	}, ws
}
