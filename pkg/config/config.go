package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
	"periph.io/x/periph/conn/physic"

	"github.com/jafd-robotics/smoothdrive/pkg/chassis"
)

// DefaultPath is where the robot image keeps its tuning file.
const DefaultPath = "/cfg/smoothdriving.yaml"

// MaxControlFrequencyHz keeps the tick period at or above a microsecond.
const MaxControlFrequencyHz = 1000000

type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

type Mechanics struct {
	// Lateral distance between the driven wheels (cm).
	TrackWidth float64 `yaml:"track_width"`
	// Wheel speeds below this magnitude are raised to it, keeping the sign.
	MinWheelSpeed int16 `yaml:"min_wheel_speed"`
	MaxWheelSpeed int16 `yaml:"max_wheel_speed"`
}

type PurePursuit struct {
	LookAheadGain float64 `yaml:"look_ahead_gain"`
	MinLookAhead  float64 `yaml:"min_look_ahead"`
	MaxCurvature  float64 `yaml:"max_curvature"`
	// Run the geometric angular velocity through the angular PID as well.
	CorrectAngularVel bool `yaml:"correct_angular_vel"`
}

type Config struct {
	ControlFrequencyHz int64       `yaml:"control_frequency_hz"`
	Mechanics          Mechanics   `yaml:"mechanics"`
	PurePursuit        PurePursuit `yaml:"pure_pursuit"`
	ForwardVelPID      Gains       `yaml:"forward_vel_pid"`
	AngularVelPID      Gains       `yaml:"angular_vel_pid"`
}

func Default() Config {
	return Config{
		ControlFrequencyHz: 100,
		Mechanics: Mechanics{
			TrackWidth:    chassis.TrackWidthCM,
			MinWheelSpeed: chassis.MinWheelSpeed,
			MaxWheelSpeed: chassis.MaxWheelSpeed,
		},
		PurePursuit: PurePursuit{
			LookAheadGain: 0.5,
			MinLookAhead:  4,
			MaxCurvature:  0.2,
		},
		ForwardVelPID: Gains{Kp: 0.4, Ki: 0.1, Kd: 0},
		AngularVelPID: Gains{Kp: 0.3, Ki: 0.05, Kd: 0},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error; the
// defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Marshal renders the config so the one in use can be written out next to the
// tuning file.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(&c)
}

func (c Config) Validate() error {
	if c.ControlFrequencyHz <= 0 || c.ControlFrequencyHz > MaxControlFrequencyHz {
		return errors.Errorf("control_frequency_hz must be in (0, %d], got %d", MaxControlFrequencyHz, c.ControlFrequencyHz)
	}
	if c.TickFrequency().Period() <= 0 {
		return errors.Errorf("control_frequency_hz %d has no usable tick period", c.ControlFrequencyHz)
	}
	if c.Mechanics.TrackWidth <= 0 {
		return errors.Errorf("mechanics.track_width must be positive, got %v", c.Mechanics.TrackWidth)
	}
	if c.Mechanics.MinWheelSpeed < 0 {
		return errors.Errorf("mechanics.min_wheel_speed must not be negative, got %d", c.Mechanics.MinWheelSpeed)
	}
	if c.Mechanics.MaxWheelSpeed < c.Mechanics.MinWheelSpeed {
		return errors.Errorf("mechanics.max_wheel_speed (%d) below min_wheel_speed (%d)",
			c.Mechanics.MaxWheelSpeed, c.Mechanics.MinWheelSpeed)
	}
	if c.PurePursuit.MinLookAhead <= 0 {
		return errors.Errorf("pure_pursuit.min_look_ahead must be positive, got %v", c.PurePursuit.MinLookAhead)
	}
	if c.PurePursuit.MaxCurvature <= 0 {
		return errors.Errorf("pure_pursuit.max_curvature must be positive, got %v", c.PurePursuit.MaxCurvature)
	}
	if c.PurePursuit.LookAheadGain < 0 {
		return errors.Errorf("pure_pursuit.look_ahead_gain must not be negative, got %v", c.PurePursuit.LookAheadGain)
	}
	return nil
}

// TickFrequency is the rate the control loop is driven at.
func (c Config) TickFrequency() physic.Frequency {
	return physic.Frequency(c.ControlFrequencyHz) * physic.Hertz
}
