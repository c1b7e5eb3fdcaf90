package smoothdriving

import (
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

type accelerate struct {
	endSpeed float64
	distance float64

	// Fixed by startTask.
	startSpeed float64
	startPos   r2.Point
	targetDir  r2.Point // Direction of travel, unit length.
	totalTime  float64
}

// sameTravelDirection reports whether the robot can go from startSpeed to
// endSpeed over distance without reversing.
func sameTravelDirection(startSpeed, endSpeed, distance float64) bool {
	if distance > 0 {
		return startSpeed >= 0 && endSpeed >= 0
	}
	if distance < 0 {
		return startSpeed <= 0 && endSpeed <= 0
	}
	return false
}

func (t *Task) startAccelerate(start RobotState) ReturnCode {
	a := &t.accelerate
	if a.endSpeed == start.ForwardVel {
		return Error
	}
	if !sameTravelDirection(start.ForwardVel, a.endSpeed, a.distance) {
		return Error
	}

	heading := headingDir(start.Orientation.Heading)
	a.startSpeed = start.ForwardVel
	a.startPos = planar(start.Position)
	a.targetDir = heading.Mul(sign(a.distance))
	a.totalTime = 2 * a.distance / (a.startSpeed + a.endSpeed)

	t.end = start
	t.end.Position = start.Position.Add(r3.Vector{X: heading.X * a.distance, Y: heading.Y * a.distance})
	t.end.ForwardVel = a.endSpeed
	t.end.WheelSpeeds = FloatWheelSpeeds{Left: a.endSpeed, Right: a.endSpeed}
	t.end.AngularVel = r3.Vector{}
	return OK
}

// timeAt inverts s(t) = v1*t + (v2-v1)*t^2/(2*T) for the time at which the
// profile has covered driven. Works on magnitudes; the result is in [0, T].
func (a *accelerate) timeAt(driven float64) float64 {
	total := math.Abs(a.distance)
	s := math.Min(math.Max(driven, 0), total)
	v1 := math.Abs(a.startSpeed)
	v2 := math.Abs(a.endSpeed)
	k := (v2 - v1) / (2 * a.totalTime)

	root := math.Sqrt(math.Max(v1*v1+4*k*s, 0))
	if v1+root == 0 {
		return 0
	}
	// Same root as (-v1 + root) / (2k) without dividing by k.
	t := 2 * s / (v1 + root)
	return math.Min(t, a.totalTime)
}

// speedAt is the desired signed forward speed once driven has been covered.
// It depends on distance only, so late or early ticks don't skew the profile.
func (a *accelerate) speedAt(driven float64) float64 {
	t := a.timeAt(driven)
	return a.startSpeed + t/a.totalTime*(a.endSpeed-a.startSpeed)
}

func (t *Task) updateAccelerate(state RobotState, dt time.Duration, e *env) WheelSpeeds {
	a := &t.accelerate
	travelSign := sign(a.distance)
	if !t.finished {
		driven := planar(state.Position).Sub(a.startPos).Dot(a.targetDir)
		if driven < math.Abs(a.distance) {
			desired := a.speedAt(driven)
			return e.pursue(state, a.startPos, a.targetDir, driven, desired, travelSign, dt)
		}
		t.finish(e)
	}
	if a.endSpeed == 0 {
		return WheelSpeeds{}
	}
	end := FloatWheelSpeeds{Left: a.endSpeed, Right: a.endSpeed}
	return e.limit(end, travelSign, travelSign).Quantize()
}
