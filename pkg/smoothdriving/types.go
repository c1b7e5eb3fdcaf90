package smoothdriving

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// RobotState is a snapshot of the sensor fusion estimate. Distances are in cm,
// speeds in cm/s and angles in rad.
type RobotState struct {
	WheelSpeeds FloatWheelSpeeds
	ForwardVel  float64
	Position    r3.Vector

	// Body rates about x (roll), y (pitch) and z (heading).
	AngularVel  r3.Vector
	Orientation Orientation

	// Heading relative to the start including full turns, (-inf, inf).
	GlobalHeading float64
}

type Orientation struct {
	Heading float64
	Pitch   float64
	Roll    float64
}

// StateSource is the sensor fusion side: every call samples a fresh estimate.
type StateSource interface {
	RobotState() RobotState
}

// MotorDriver turns wheel speed setpoints into actuator commands.
type MotorDriver interface {
	SetSpeeds(speeds WheelSpeeds) error
}

// WheelSpeeds is the controller's output, in the same unit as ForwardVel.
type WheelSpeeds struct {
	Left  int16
	Right int16
}

func (s WheelSpeeds) Float() FloatWheelSpeeds {
	return FloatWheelSpeeds{Left: float64(s.Left), Right: float64(s.Right)}
}

func (s WheelSpeeds) String() string {
	return fmt.Sprintf("l=%d r=%d", s.Left, s.Right)
}

// FloatWheelSpeeds is used for accumulation before quantizing.
type FloatWheelSpeeds struct {
	Left  float64
	Right float64
}

// Quantize truncates both speeds toward zero, saturating at the int16 range.
func (s FloatWheelSpeeds) Quantize() WheelSpeeds {
	return WheelSpeeds{Left: truncateSpeed(s.Left), Right: truncateSpeed(s.Right)}
}

func truncateSpeed(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	if v <= math.MinInt16 {
		return math.MinInt16
	}
	if v >= math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

type ReturnCode uint8

const (
	FatalError ReturnCode = iota
	Error
	Aborted
	OK
)

func (c ReturnCode) String() string {
	switch c {
	case FatalError:
		return "fatal error"
	case Error:
		return "error"
	case Aborted:
		return "aborted"
	case OK:
		return "ok"
	}
	return fmt.Sprintf("ReturnCode(%d)", uint8(c))
}

func planar(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

func headingDir(heading float64) r2.Point {
	return r2.Point{X: math.Cos(heading), Y: math.Sin(heading)}
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	if x > 0 {
		return 1
	}
	return 0
}
