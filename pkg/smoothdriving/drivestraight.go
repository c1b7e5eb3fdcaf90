package smoothdriving

import (
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

type driveStraight struct {
	distance float64

	speed     float64
	startPos  r2.Point
	targetDir r2.Point
}

func (t *Task) startDriveStraight(start RobotState) ReturnCode {
	d := &t.driveStraight
	// Reversing needs a negative distance and the robot already going backwards.
	if start.ForwardVel*d.distance <= 0 {
		return Error
	}

	heading := headingDir(start.Orientation.Heading)
	d.speed = start.ForwardVel
	d.startPos = planar(start.Position)
	d.targetDir = heading.Mul(sign(d.speed))

	t.end = start
	t.end.Position = start.Position.Add(r3.Vector{X: heading.X * d.distance, Y: heading.Y * d.distance})
	t.end.WheelSpeeds = FloatWheelSpeeds{Left: d.speed, Right: d.speed}
	t.end.AngularVel = r3.Vector{}
	return OK
}

func (t *Task) updateDriveStraight(state RobotState, dt time.Duration, e *env) WheelSpeeds {
	d := &t.driveStraight
	travelSign := sign(d.speed)
	if !t.finished {
		driven := planar(state.Position).Sub(d.startPos).Dot(d.targetDir)
		if math.Abs(driven) < math.Abs(d.distance) {
			return e.pursue(state, d.startPos, d.targetDir, driven, d.speed, travelSign, dt)
		}
		t.finish(e)
	}
	hold := FloatWheelSpeeds{Left: d.speed, Right: d.speed}
	return e.limit(hold, travelSign, travelSign).Quantize()
}
