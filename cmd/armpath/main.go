// Command armpath samples the program of a robot cell description and
// reports the joint path, limit violations and warnings.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edaniels/golog"

	"zappem.net/pub/kinematics/armpath/internal/chart"
	"zappem.net/pub/kinematics/armpath/internal/config"
	"zappem.net/pub/kinematics/armpath/kinematics"
	"zappem.net/pub/kinematics/armpath/path"
)

var (
	cfgPath = flag.String("config", "cell.json", "robot cell and program description (.json)")
	steps   = flag.Int("steps", 0, "interpolation steps per movement, overrides the configuration")
	plotDir = flag.String("plot", "", "directory to write joint and TCP plots to")
	verbose = flag.Bool("v", false, "log every segment")
	dump    = flag.Bool("dump", false, "print every sample")
)

func main() {
	flag.Parse()

	logger := golog.NewLogger("armpath")
	if *verbose {
		logger = golog.NewDevelopmentLogger("armpath")
	}
	if err := run(logger); err != nil {
		logger.Errorw("failed", "error", err)
		os.Exit(1)
	}
}

func run(logger golog.Logger) error {
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	setup, err := cfg.Build()
	if err != nil {
		return err
	}
	if *steps > 0 {
		setup.Steps = *steps
	}

	solver, err := kinematics.New(setup.Robot, logger)
	if err != nil {
		return err
	}
	g, err := path.NewGenerator(solver, setup.Steps, logger)
	if err != nil {
		return err
	}
	tr, err := g.Generate(setup.Program)
	if err != nil {
		return err
	}

	for _, s := range tr.Segments {
		first, last := tr.Robot[s.Start], tr.Robot[s.End-1]
		fmt.Printf("%3d %-16q %3d samples  %v -> %v\n", s.Command, s.Name, s.End-s.Start, first, last)
		if *dump {
			for i := s.Start; i < s.End; i++ {
				o := tr.TCP[i].Origin
				fmt.Printf("      %v  tcp=(%.2f, %.2f, %.2f)  ok=%v\n", tr.Robot[i], o.X, o.Y, o.Z, tr.InLimits[i])
			}
		}
	}
	for _, w := range tr.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range tr.Errors {
		fmt.Printf("error: %v\n", e)
	}
	fmt.Printf("robot %q: %d samples, path %.1f mm, time %.2f s, within limits %v\n",
		setup.Robot.Name, len(tr.Robot), tr.Curve.Length(), tr.Time, tr.InLimitsAll())

	if *plotDir != "" {
		files, err := chart.Write(tr, *plotDir)
		if err != nil {
			return err
		}
		for _, f := range files {
			logger.Infow("wrote plot", "file", f)
		}
	}
	return nil
}
