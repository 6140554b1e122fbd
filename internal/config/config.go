// Package config loads a robot cell and its program from a JSON
// document.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultSteps is the interpolation count used when a document does
// not set one.
const DefaultSteps = 20

// Vec is a point or direction as [x, y, z].
type Vec [3]float64

// Frame is a coordinate frame. The orientation is given either by two
// axes (x_axis and y_axis, Gram-Schmidt orthogonalised) or by a unit
// quaternion [w, x, y, z]. Without either it is the identity.
type Frame struct {
	Origin     Vec         `json:"origin"`
	XAxis      *Vec        `json:"x_axis,omitempty"`
	YAxis      *Vec        `json:"y_axis,omitempty"`
	Quaternion *[4]float64 `json:"quaternion,omitempty"`
}

// Geometry is the seven length description of an ortho-parallel arm.
type Geometry struct {
	A1 float64 `json:"a1"`
	A2 float64 `json:"a2"`
	B  float64 `json:"b"`
	C1 float64 `json:"c1"`
	C2 float64 `json:"c2"`
	C3 float64 `json:"c3"`
	C4 float64 `json:"c4"`
}

// Calibration relates joint values to the canonical arm angles.
type Calibration struct {
	Signs        *[6]float64 `json:"signs,omitempty"`
	Offsets      [6]float64  `json:"offsets"`
	WristEpsilon float64     `json:"wrist_epsilon,omitempty"`
	ElbowEpsilon float64     `json:"elbow_epsilon,omitempty"`
}

// Tool is an end effector.
type Tool struct {
	Name string `json:"name"`
	TCP  Frame  `json:"tcp"`
}

// ExternalAxis is a linear track or rotational positioner.
type ExternalAxis struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	LogicID    int        `json:"logic_id"`
	Limits     [2]float64 `json:"limits"`
	MovesRobot bool       `json:"moves_robot,omitempty"`
	Origin     Vec        `json:"origin"`
	Direction  Vec        `json:"direction"`
}

// Joint is an explicit joint frame; the joint turns about z_axis.
type Joint struct {
	Origin Vec  `json:"origin"`
	ZAxis  Vec  `json:"z_axis"`
	XAxis  *Vec `json:"x_axis,omitempty"`
}

// Robot describes the arm. Either Geometry or Joints with Mounting
// must be given.
type Robot struct {
	Name         string         `json:"name"`
	Base         Frame          `json:"base"`
	Geometry     *Geometry      `json:"geometry,omitempty"`
	Joints       []Joint        `json:"joints,omitempty"`
	Mounting     *Frame         `json:"mounting,omitempty"`
	Limits       [6][2]float64  `json:"limits"`
	Calibration  Calibration    `json:"calibration"`
	Tool         *Tool          `json:"tool,omitempty"`
	ExternalAxes []ExternalAxis `json:"external_axes,omitempty"`
}

// WorkObject is a user frame, optionally riding an external axis.
type WorkObject struct {
	Frame Frame  `json:"frame"`
	Axis  string `json:"axis,omitempty"`
}

// Target is a Cartesian robot target. External values left null are
// undefined.
type Target struct {
	Name          string     `json:"name"`
	Frame         Frame      `json:"frame"`
	Configuration int        `json:"configuration"`
	External      []*float64 `json:"external,omitempty"`
}

// Conf holds the configuration monitoring toggles.
type Conf struct {
	Linear bool `json:"linear"`
	Joint  bool `json:"joint"`
}

// Command is one program entry. Exactly one of Move, Tool, Conf,
// CircularMode and Wait is set.
type Command struct {
	Move         string      `json:"move,omitempty"`
	Name         string      `json:"name,omitempty"`
	Joints       *[6]float64 `json:"joints,omitempty"`
	External     []*float64  `json:"external,omitempty"`
	Target       *Target     `json:"target,omitempty"`
	Via          *Target     `json:"via,omitempty"`
	WorkObject   string      `json:"work_object,omitempty"`
	Speed        float64     `json:"speed,omitempty"`
	Time         float64     `json:"time,omitempty"`
	Tool         string      `json:"tool,omitempty"`
	Conf         *Conf       `json:"conf,omitempty"`
	CircularMode string      `json:"circular_mode,omitempty"`
	Wait         *float64    `json:"wait,omitempty"`
}

// Config is the whole document.
type Config struct {
	Robot       Robot                 `json:"robot"`
	Tools       []Tool                `json:"tools,omitempty"`
	WorkObjects map[string]WorkObject `json:"work_objects,omitempty"`
	Steps       int                   `json:"steps,omitempty"`
	Program     []Command             `json:"program"`
}

// maxSize bounds the size of a configuration document in bytes.
const maxSize = 1 << 20

// Load reads and validates a configuration file. Steps defaults to
// DefaultSteps when the document leaves it out.
func Load(path string) (*Config, error) {
	if ext := filepath.Ext(path); ext != ".json" {
		return nil, fmt.Errorf("config %s: need a .json extension, got %q", path, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > maxSize {
		return nil, fmt.Errorf("config %s is too large, limit %d bytes", path, maxSize)
	}

	cfg := &Config{Steps: DefaultSteps}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the document for problems that do not need the
// robot model to detect.
func (c *Config) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", c.Steps)
	}
	r := c.Robot
	if r.Geometry == nil && len(r.Joints) != 6 {
		return fmt.Errorf("robot needs either geometry or six joints, got %d joints", len(r.Joints))
	}
	if r.Geometry == nil && r.Mounting == nil {
		return fmt.Errorf("robot with explicit joints needs a mounting frame")
	}
	for i, l := range r.Limits {
		if l[0] > l[1] {
			return fmt.Errorf("robot axis %d limits [%g, %g] are inverted", i+1, l[0], l[1])
		}
	}
	for _, a := range r.ExternalAxes {
		if a.Kind != "linear" && a.Kind != "rotational" {
			return fmt.Errorf("external axis %q: kind must be linear or rotational, got %q", a.Name, a.Kind)
		}
	}
	for i, cmd := range c.Program {
		if err := cmd.validate(); err != nil {
			return fmt.Errorf("program entry %d: %w", i, err)
		}
	}
	return nil
}

func (cmd Command) validate() error {
	set := 0
	for _, ok := range []bool{cmd.Move != "", cmd.Tool != "", cmd.Conf != nil, cmd.CircularMode != "", cmd.Wait != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of move, tool, conf, circular_mode and wait must be set")
	}
	switch cmd.Move {
	case "":
	case "absj":
		if cmd.Joints == nil {
			return fmt.Errorf("absj movement %q needs joints", cmd.Name)
		}
	case "joint":
		if cmd.Joints == nil && cmd.Target == nil {
			return fmt.Errorf("joint movement %q needs joints or a target", cmd.Name)
		}
	case "linear", "circular":
		if cmd.Target == nil {
			return fmt.Errorf("%s movement %q needs a target", cmd.Move, cmd.Name)
		}
	default:
		return fmt.Errorf("unknown movement type %q", cmd.Move)
	}
	return nil
}
