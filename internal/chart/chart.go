// Package chart renders a sampled program as PNG plots: the six joint
// traces over the samples and the TCP path seen from above.
package chart

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"zappem.net/pub/kinematics/armpath/path"
)

// File names written by Write.
const (
	JointsFile = "joints.png"
	PathFile   = "tcp_path.png"
)

func legendTopRight(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

// Joints plots every robot axis value against the sample index.
func Joints(tr *path.Trajectory) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Robot axes"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Angle (deg)"

	for axis := 0; axis < 6; axis++ {
		pts := make(plotter.XYs, len(tr.Robot))
		for i, q := range tr.Robot {
			pts[i] = plotter.XY{X: float64(i), Y: q[axis]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis+1, err)
		}
		line.Color = plotutil.Color(axis)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("axis %d", axis+1), line)
	}
	legendTopRight(p)
	return p, nil
}

// TCPPath plots the world X and Y of the TCP, one line per movement.
func TCPPath(tr *path.Trajectory) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "TCP path (top view)"
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"

	for i, seg := range tr.Segments {
		start := seg.Start
		// Join each movement to the previous sample.
		if start > 0 {
			start--
		}
		pts := make(plotter.XYs, 0, seg.End-start)
		for _, f := range tr.TCP[start:seg.End] {
			pts = append(pts, plotter.XY{X: f.Origin.X, Y: f.Origin.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("movement %q: %w", seg.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(seg.Name, line)
	}
	p.Add(plotter.NewGrid())
	legendTopRight(p)
	return p, nil
}

// Write saves both plots of tr into dir and returns the paths written.
func Write(tr *path.Trajectory, dir string) ([]string, error) {
	if len(tr.Robot) == 0 {
		return nil, fmt.Errorf("trajectory has no samples")
	}
	jp, err := Joints(tr)
	if err != nil {
		return nil, err
	}
	tp, err := TCPPath(tr)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, out := range []struct {
		p    *plot.Plot
		name string
	}{{jp, JointsFile}, {tp, PathFile}} {
		f := filepath.Join(dir, out.name)
		if err := out.p.Save(14*vg.Inch, 6*vg.Inch, f); err != nil {
			return files, fmt.Errorf("save %s: %w", out.name, err)
		}
		files = append(files, f)
	}
	return files, nil
}
