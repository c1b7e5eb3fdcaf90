package smoothdriving

import (
	"math"
	"time"

	"github.com/golang/geo/r2"

	"github.com/jafd-robotics/smoothdrive/pkg/chassis"
)

// lookAheadDistance grows with speed and never drops below the configured
// floor.
func (e *env) lookAheadDistance(desiredSpeed float64) float64 {
	pp := e.cfg.PurePursuit
	return math.Max(pp.LookAheadGain*math.Abs(desiredSpeed), pp.MinLookAhead)
}

// toRobotFrame expresses p in the frame of a robot at pos facing heading:
// x forward, y to the left.
func toRobotFrame(p, pos r2.Point, heading float64) r2.Point {
	d := p.Sub(pos)
	sin, cos := math.Sincos(heading)
	return r2.Point{
		X: cos*d.X + sin*d.Y,
		Y: -sin*d.X + cos*d.Y,
	}
}

// pursuitCurvature is the curvature of the arc through the robot origin that
// reaches goal (in robot frame), clamped to +-maxCurvature.
func pursuitCurvature(goal r2.Point, maxCurvature float64) float64 {
	distSq := goal.X*goal.X + goal.Y*goal.Y
	if distSq == 0 {
		return 0
	}
	curvature := 2 * goal.Y / distSq
	if curvature > maxCurvature {
		return maxCurvature
	} else if curvature < -maxCurvature {
		return -maxCurvature
	}
	return curvature
}

// pursue steers along the line from startPos in direction dir (direction of
// travel, unit length) at desiredSpeed. progress is the distance already
// covered along the line.
func (e *env) pursue(state RobotState, startPos, dir r2.Point, progress, desiredSpeed, travelSign float64, dt time.Duration) WheelSpeeds {
	lookAhead := e.lookAheadDistance(desiredSpeed)
	goal := startPos.Add(dir.Mul(progress + lookAhead))
	local := toRobotFrame(goal, planar(state.Position), state.Orientation.Heading)

	curvature := pursuitCurvature(local, e.cfg.PurePursuit.MaxCurvature)
	angularVel := desiredSpeed * curvature
	if e.cfg.PurePursuit.CorrectAngularVel {
		angularVel += e.angularPID.Process(angularVel, state.AngularVel.Z, dt)
	}
	forwardVel := desiredSpeed + e.forwardPID.Process(desiredSpeed, state.ForwardVel, dt)

	left, right := chassis.WheelSpeedsForTwist(forwardVel, angularVel, e.cfg.Mechanics.TrackWidth)
	return e.limit(FloatWheelSpeeds{Left: left, Right: right}, travelSign, travelSign).Quantize()
}

// limit scales both wheels down together if either exceeds the maximum speed,
// then raises any wheel under the minimum speed to it. A wheel that is
// exactly zero takes the sign of its intended direction.
func (e *env) limit(s FloatWheelSpeeds, leftDir, rightDir float64) FloatWheelSpeeds {
	mech := e.cfg.Mechanics
	if maxSpeed := float64(mech.MaxWheelSpeed); maxSpeed > 0 {
		m := math.Max(math.Abs(s.Left), math.Abs(s.Right))
		if m > maxSpeed {
			scale := maxSpeed / m
			s.Left *= scale
			s.Right *= scale
		}
	}
	minSpeed := float64(mech.MinWheelSpeed)
	return FloatWheelSpeeds{
		Left:  raiseToMinSpeed(s.Left, minSpeed, leftDir),
		Right: raiseToMinSpeed(s.Right, minSpeed, rightDir),
	}
}

func raiseToMinSpeed(v, minSpeed, dir float64) float64 {
	if math.Abs(v) >= minSpeed {
		return v
	}
	if v == 0 {
		if dir == 0 {
			return 0
		}
		return math.Copysign(minSpeed, dir)
	}
	return math.Copysign(minSpeed, v)
}
