// Package sim is a kinematic differential-drive robot for exercising the
// trajectory controller without hardware. It is both the state source and the
// motor driver.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/jafd-robotics/smoothdrive/pkg/angle"
	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

// ErrInjected is returned by SetSpeeds once FailNextSetSpeeds has been called.
var ErrInjected = errors.New("injected motor fault")

// Robot applies commanded wheel speeds instantly. Not realistic, but it keeps
// closed-loop runs deterministic.
type Robot struct {
	lock sync.Mutex

	trackWidth float64
	pos        r2.Point
	heading    float64 // Unwrapped.
	wheels     smoothdriving.FloatWheelSpeeds

	setCalls int
	failNext bool

	track Track
}

func NewRobot(trackWidth float64) *Robot {
	r := &Robot{trackWidth: trackWidth}
	r.track.add(r.pos)
	return r
}

// SetPose teleports the robot and clears the recorded track.
func (r *Robot) SetPose(x, y, heading float64) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.pos = r2.Point{X: x, Y: y}
	r.heading = heading
	r.track = Track{}
	r.track.add(r.pos)
}

// SetWheelSpeeds overrides the wheel speeds without counting as a command.
func (r *Robot) SetWheelSpeeds(s smoothdriving.FloatWheelSpeeds) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.wheels = s
}

func (r *Robot) FailNextSetSpeeds() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.failNext = true
}

func (r *Robot) SetSpeeds(s smoothdriving.WheelSpeeds) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.setCalls++
	if r.failNext {
		r.failNext = false
		return ErrInjected
	}
	r.wheels = s.Float()
	return nil
}

// SetSpeedsCalls counts every SetSpeeds call, failed ones included.
func (r *Robot) SetSpeedsCalls() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.setCalls
}

func (r *Robot) twist() (forward, angular float64) {
	forward = (r.wheels.Left + r.wheels.Right) / 2
	angular = (r.wheels.Right - r.wheels.Left) / r.trackWidth
	return
}

func (r *Robot) RobotState() smoothdriving.RobotState {
	r.lock.Lock()
	defer r.lock.Unlock()
	forward, angular := r.twist()
	return smoothdriving.RobotState{
		WheelSpeeds: r.wheels,
		ForwardVel:  forward,
		Position:    r3.Vector{X: r.pos.X, Y: r.pos.Y},
		AngularVel:  r3.Vector{Z: angular},
		Orientation: smoothdriving.Orientation{
			Heading: angle.Normalize(r.heading),
		},
		GlobalHeading: r.heading,
	}
}

// Step advances the pose by dt using the heading at the middle of the step.
func (r *Robot) Step(dt time.Duration) {
	r.lock.Lock()
	defer r.lock.Unlock()
	secs := dt.Seconds()
	forward, angular := r.twist()
	mid := r.heading + angular*secs/2
	sin, cos := math.Sincos(mid)
	r.pos = r.pos.Add(r2.Point{X: cos, Y: sin}.Mul(forward * secs))
	r.heading += angular * secs
	r.track.add(r.pos)
}

// Track returns a copy of the positions visited since the last SetPose.
func (r *Robot) Track() Track {
	r.lock.Lock()
	defer r.lock.Unlock()
	return Track{Points: append([]r2.Point(nil), r.track.Points...)}
}
