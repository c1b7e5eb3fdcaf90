package smoothdriving

import (
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/jafd-robotics/smoothdrive/pkg/angle"
	"github.com/jafd-robotics/smoothdrive/pkg/chassis"
)

type rotate struct {
	maxAngularVel float64
	angle         float64

	startHeading float64 // GlobalHeading at start.
	totalTime    float64
	decelerating bool
}

func (t *Task) startRotate(start RobotState, e *env) ReturnCode {
	r := &t.rotate
	minSpeed := float64(e.cfg.Mechanics.MinWheelSpeed)
	if math.Abs(start.WheelSpeeds.Left) < minSpeed || math.Abs(start.WheelSpeeds.Right) < minSpeed {
		return Error
	}
	if r.angle == 0 || r.maxAngularVel == 0 {
		return Error
	}
	r.totalTime = r.angle / r.maxAngularVel
	if r.totalTime < 0 {
		return Error
	}
	r.startHeading = start.GlobalHeading
	r.decelerating = false

	t.end = start
	t.end.Orientation.Heading = angle.Wrap(start.Orientation.Heading).Advance(r.angle).Radians()
	t.end.GlobalHeading = start.GlobalHeading + r.angle
	t.end.ForwardVel = 0
	t.end.WheelSpeeds = FloatWheelSpeeds{}
	t.end.AngularVel = r3.Vector{}
	return OK
}

// profile returns the desired angular velocity after turning through rotated
// (any sign, only the magnitude is used). The first half ramps up until the
// cap is hit, the second half ramps down over the remaining angle.
func (r *rotate) profile(rotated float64) float64 {
	maxVel := math.Abs(r.maxAngularVel)
	done := math.Min(math.Abs(rotated), math.Abs(r.angle))

	var vel float64
	if !r.decelerating {
		vel = math.Sqrt(4 * done * maxVel / r.totalTime)
		if vel >= maxVel {
			r.decelerating = true
		}
	}
	if r.decelerating {
		remaining := math.Abs(r.angle) - done
		vel = math.Min(maxVel, math.Sqrt(4*remaining*maxVel/r.totalTime))
	}
	return math.Copysign(vel, r.maxAngularVel)
}

func (t *Task) updateRotate(state RobotState, dt time.Duration, e *env) WheelSpeeds {
	r := &t.rotate
	if t.finished {
		return WheelSpeeds{}
	}
	rotated := state.GlobalHeading - r.startHeading
	if math.Abs(rotated) >= math.Abs(r.angle) {
		t.finish(e)
		return WheelSpeeds{}
	}

	desired := r.profile(rotated)
	angularVel := desired + e.angularPID.Process(desired, state.AngularVel.Z, dt)
	left, right := chassis.WheelSpeedsForTwist(0, angularVel, e.cfg.Mechanics.TrackWidth)

	dir := sign(r.angle)
	s := e.limit(FloatWheelSpeeds{Left: left, Right: right}, -dir, dir)
	s.Left = math.Copysign(s.Left, -dir)
	s.Right = math.Copysign(s.Right, dir)
	return s.Quantize()
}
