package smoothdriving

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/jafd-robotics/smoothdrive/pkg/config"
)

const tick = 10 * time.Millisecond

func testEnv(mutate ...func(c *config.Config)) *env {
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	e := newEnv(cfg)
	return &e
}

func zeroAngularGains(c *config.Config) {
	c.AngularVelPID = config.Gains{}
}

func movingAt(v float64) RobotState {
	return RobotState{ForwardVel: v, WheelSpeeds: FloatWheelSpeeds{Left: v, Right: v}}
}

func expectStart(t *testing.T, task Task, start RobotState, expected ReturnCode) Task {
	t.Helper()
	rc := task.startTask(start, testEnv())
	if rc != expected {
		t.Errorf("%v from %+v: got %v, expected %v", task, start, rc, expected)
	}
	return task
}

func TestAccelerateValidation(t *testing.T) {
	expectStart(t, Accelerate(50, 100), movingAt(0), OK)
	expectStart(t, Accelerate(10, 100), movingAt(30), OK)
	expectStart(t, Accelerate(-50, -100), movingAt(0), OK)
	expectStart(t, Accelerate(0, -100), movingAt(-20), OK)

	expectStart(t, Accelerate(0, 100), movingAt(0), Error)
	expectStart(t, Accelerate(30, 100), movingAt(30), Error)
	expectStart(t, Accelerate(50, -100), movingAt(0), Error)
	expectStart(t, Accelerate(-50, 100), movingAt(0), Error)
	expectStart(t, Accelerate(20, 100), movingAt(-10), Error)
	expectStart(t, Accelerate(50, 0), movingAt(0), Error)
}

func TestAccelerateEndState(t *testing.T) {
	start := movingAt(0)
	start.Position = r3.Vector{X: 10, Y: 20, Z: 1}
	start.Orientation.Heading = math.Pi / 2
	start.GlobalHeading = 5*math.Pi/2
	start.AngularVel = r3.Vector{Z: 0.3}

	task := expectStart(t, Accelerate(50, 100), start, OK)
	test.That(t, task.TotalTime(), test.ShouldAlmostEqual, 4)
	test.That(t, task.StartState(), test.ShouldResemble, start)

	end := task.EndState()
	test.That(t, end.Position.X, test.ShouldAlmostEqual, 10)
	test.That(t, end.Position.Y, test.ShouldAlmostEqual, 120)
	test.That(t, end.Position.Z, test.ShouldEqual, 1)
	test.That(t, end.ForwardVel, test.ShouldEqual, 50)
	test.That(t, end.WheelSpeeds, test.ShouldResemble, FloatWheelSpeeds{Left: 50, Right: 50})
	test.That(t, end.AngularVel, test.ShouldResemble, r3.Vector{})
	test.That(t, end.Orientation, test.ShouldResemble, start.Orientation)
	test.That(t, end.GlobalHeading, test.ShouldEqual, start.GlobalHeading)
}

func TestAccelerateProfile(t *testing.T) {
	up := accelerate{startSpeed: 0, endSpeed: 50, distance: 100, totalTime: 4}
	test.That(t, up.speedAt(0), test.ShouldEqual, 0)
	test.That(t, up.speedAt(25), test.ShouldAlmostEqual, 25)
	test.That(t, up.speedAt(100), test.ShouldAlmostEqual, 50)
	test.That(t, up.speedAt(250), test.ShouldAlmostEqual, 50)
	test.That(t, up.speedAt(-5), test.ShouldEqual, 0)

	down := accelerate{startSpeed: 50, endSpeed: 0, distance: 100, totalTime: 4}
	test.That(t, down.speedAt(0), test.ShouldEqual, 50)
	test.That(t, down.speedAt(75), test.ShouldAlmostEqual, 25)
	test.That(t, down.speedAt(100), test.ShouldAlmostEqual, 0)

	reverse := accelerate{startSpeed: 0, endSpeed: -50, distance: -100, totalTime: 4}
	test.That(t, reverse.speedAt(25), test.ShouldAlmostEqual, -25)

	last := up.speedAt(0)
	for s := 1.0; s <= 100; s++ {
		v := up.speedAt(s)
		if v < last {
			t.Fatalf("speed dropped from %f to %f at %f", last, v, s)
		}
		last = v
	}
}

func TestAccelerateFromRestMoves(t *testing.T) {
	e := testEnv()
	task := Accelerate(50, 100)
	test.That(t, task.startTask(movingAt(0), e), test.ShouldEqual, OK)

	// Desired speed is zero at the start; the deadband gets the robot going.
	speeds := task.updateSpeeds(movingAt(0), tick, e)
	test.That(t, speeds, test.ShouldResemble, WheelSpeeds{Left: 5, Right: 5})
	test.That(t, task.Finished(), test.ShouldBeFalse)
}

func TestAccelerateToStopFinishes(t *testing.T) {
	e := testEnv()
	task := Accelerate(0, 100)
	test.That(t, task.startTask(movingAt(50), e), test.ShouldEqual, OK)

	e.forwardPID.Process(10, 0, time.Second)
	test.That(t, e.forwardPID.Integral(), test.ShouldNotEqual, 0)

	state := movingAt(3)
	state.Position.X = 100
	speeds := task.updateSpeeds(state, tick, e)
	test.That(t, speeds, test.ShouldResemble, WheelSpeeds{})
	test.That(t, task.Finished(), test.ShouldBeTrue)
	test.That(t, e.forwardPID.Integral(), test.ShouldEqual, 0)

	// Stays finished even if the estimate drifts back.
	state.Position.X = 90
	test.That(t, task.updateSpeeds(state, tick, e), test.ShouldResemble, WheelSpeeds{})
	test.That(t, task.Finished(), test.ShouldBeTrue)
}

func TestAccelerateHoldsEndSpeed(t *testing.T) {
	e := testEnv()
	task := Accelerate(40, 100)
	test.That(t, task.startTask(movingAt(20), e), test.ShouldEqual, OK)

	state := movingAt(40)
	state.Position.X = 101
	test.That(t, task.updateSpeeds(state, tick, e), test.ShouldResemble, WheelSpeeds{Left: 40, Right: 40})
	test.That(t, task.Finished(), test.ShouldBeTrue)
}

func TestDriveStraightValidation(t *testing.T) {
	expectStart(t, DriveStraight(100), movingAt(20), OK)
	expectStart(t, DriveStraight(-100), movingAt(-20), OK)
	expectStart(t, DriveStraight(100), movingAt(0), Error)
	expectStart(t, DriveStraight(-100), movingAt(20), Error)
	expectStart(t, DriveStraight(100), movingAt(-20), Error)
	expectStart(t, DriveStraight(0), movingAt(20), Error)
}

func TestDriveStraight(t *testing.T) {
	e := testEnv()
	task := DriveStraight(50)
	test.That(t, task.startTask(movingAt(20), e), test.ShouldEqual, OK)
	test.That(t, task.EndState().Position.X, test.ShouldAlmostEqual, 50)
	test.That(t, task.EndState().ForwardVel, test.ShouldEqual, 20)

	test.That(t, task.updateSpeeds(movingAt(20), tick, e), test.ShouldResemble, WheelSpeeds{Left: 20, Right: 20})

	// Off to the right of the line, so steer left.
	state := movingAt(20)
	state.Position = r3.Vector{X: 10, Y: -3}
	speeds := task.updateSpeeds(state, tick, e)
	test.That(t, speeds.Right, test.ShouldBeGreaterThan, speeds.Left)

	state.Position = r3.Vector{X: 50}
	test.That(t, task.updateSpeeds(state, tick, e), test.ShouldResemble, WheelSpeeds{Left: 20, Right: 20})
	test.That(t, task.Finished(), test.ShouldBeTrue)
}

func TestDriveStraightReverse(t *testing.T) {
	e := testEnv()
	task := DriveStraight(-50)
	test.That(t, task.startTask(movingAt(-20), e), test.ShouldEqual, OK)
	test.That(t, task.EndState().Position.X, test.ShouldAlmostEqual, -50)
	test.That(t, task.updateSpeeds(movingAt(-20), tick, e), test.ShouldResemble, WheelSpeeds{Left: -20, Right: -20})

	state := movingAt(-20)
	state.Position.X = -30
	task.updateSpeeds(state, tick, e)
	test.That(t, task.Finished(), test.ShouldBeFalse)
	state.Position.X = -51
	task.updateSpeeds(state, tick, e)
	test.That(t, task.Finished(), test.ShouldBeTrue)
}

func TestStopTask(t *testing.T) {
	e := testEnv()
	start := movingAt(30)
	start.Position = r3.Vector{X: 4, Y: 2}
	start.AngularVel = r3.Vector{Z: 1}

	task := Stop()
	test.That(t, task.startTask(start, e), test.ShouldEqual, OK)
	test.That(t, task.Finished(), test.ShouldBeFalse)
	end := task.EndState()
	test.That(t, end.Position, test.ShouldResemble, start.Position)
	test.That(t, end.ForwardVel, test.ShouldEqual, 0)
	test.That(t, end.AngularVel, test.ShouldResemble, r3.Vector{})

	test.That(t, task.updateSpeeds(start, tick, e), test.ShouldResemble, WheelSpeeds{})
	test.That(t, task.Finished(), test.ShouldBeTrue)
	test.That(t, task.updateSpeeds(start, tick, e), test.ShouldResemble, WheelSpeeds{})
}

func spinning() RobotState {
	return RobotState{WheelSpeeds: FloatWheelSpeeds{Left: -10, Right: 10}}
}

func TestRotateValidation(t *testing.T) {
	expectStart(t, Rotate(2, math.Pi/2), spinning(), OK)
	expectStart(t, Rotate(-2, -math.Pi/2), spinning(), OK)
	expectStart(t, Rotate(2, math.Pi/2), movingAt(10), OK)

	expectStart(t, Rotate(2, 0), spinning(), Error)
	expectStart(t, Rotate(0, 1), spinning(), Error)
	expectStart(t, Rotate(2, -1), spinning(), Error)
	expectStart(t, Rotate(2, math.Pi/2), movingAt(0), Error)
	expectStart(t, Rotate(2, math.Pi/2), RobotState{WheelSpeeds: FloatWheelSpeeds{Left: 10, Right: 4}}, Error)
}

func TestRotateEndState(t *testing.T) {
	start := spinning()
	start.Orientation.Heading = math.Pi / 2
	start.GlobalHeading = math.Pi / 2
	start.Position = r3.Vector{X: 3, Y: 4}

	task := expectStart(t, Rotate(2, 3*math.Pi/2), start, OK)
	test.That(t, task.TotalTime(), test.ShouldAlmostEqual, 3*math.Pi/4)
	end := task.EndState()
	test.That(t, end.Orientation.Heading, test.ShouldAlmostEqual, 0)
	test.That(t, end.GlobalHeading, test.ShouldAlmostEqual, 2*math.Pi)
	test.That(t, end.Position, test.ShouldResemble, start.Position)
	test.That(t, end.WheelSpeeds, test.ShouldResemble, FloatWheelSpeeds{})
	test.That(t, end.ForwardVel, test.ShouldEqual, 0)
}

func TestRotateProfile(t *testing.T) {
	r := rotate{maxAngularVel: 2, angle: 4, totalTime: 2}
	test.That(t, r.profile(0), test.ShouldEqual, 0)
	test.That(t, r.profile(0.25), test.ShouldAlmostEqual, 1)
	test.That(t, r.decelerating, test.ShouldBeFalse)
	test.That(t, r.profile(1), test.ShouldAlmostEqual, 2)
	test.That(t, r.decelerating, test.ShouldBeTrue)
	test.That(t, r.profile(2), test.ShouldAlmostEqual, 2)
	test.That(t, r.profile(3.5), test.ShouldAlmostEqual, math.Sqrt(2))
	test.That(t, r.profile(4), test.ShouldEqual, 0)

	neg := rotate{maxAngularVel: -2, angle: -4, totalTime: 2}
	test.That(t, neg.profile(-0.25), test.ShouldAlmostEqual, -1)
}

func TestRotateUpdate(t *testing.T) {
	e := testEnv(zeroAngularGains)
	task := Rotate(2, math.Pi/2)
	test.That(t, task.startTask(spinning(), e), test.ShouldEqual, OK)

	// Zero desired rate at the start, the deadband keeps it turning.
	test.That(t, task.updateSpeeds(spinning(), tick, e), test.ShouldResemble, WheelSpeeds{Left: -5, Right: 5})

	state := spinning()
	state.GlobalHeading = math.Pi / 4
	test.That(t, task.updateSpeeds(state, tick, e), test.ShouldResemble, WheelSpeeds{Left: -15, Right: 15})

	state.GlobalHeading = math.Pi / 2
	test.That(t, task.updateSpeeds(state, tick, e), test.ShouldResemble, WheelSpeeds{})
	test.That(t, task.Finished(), test.ShouldBeTrue)
}

func TestRotateClockwise(t *testing.T) {
	e := testEnv(zeroAngularGains)
	task := Rotate(-2, -math.Pi/2)
	test.That(t, task.startTask(spinning(), e), test.ShouldEqual, OK)
	test.That(t, task.updateSpeeds(spinning(), tick, e), test.ShouldResemble, WheelSpeeds{Left: 5, Right: -5})
}

func TestRotateStartsAccelerating(t *testing.T) {
	e := testEnv()
	task := Rotate(2, math.Pi/2)
	task.rotate.decelerating = true
	test.That(t, task.startTask(spinning(), e), test.ShouldEqual, OK)
	test.That(t, task.rotate.decelerating, test.ShouldBeFalse)
}

func TestPursuitCurvature(t *testing.T) {
	test.That(t, pursuitCurvature(r2.Point{X: 4}, 0.2), test.ShouldEqual, 0)
	test.That(t, pursuitCurvature(r2.Point{}, 0.2), test.ShouldEqual, 0)
	test.That(t, pursuitCurvature(r2.Point{Y: 1}, 0.2), test.ShouldEqual, 0.2)
	test.That(t, pursuitCurvature(r2.Point{Y: -1}, 0.2), test.ShouldEqual, -0.2)
	test.That(t, pursuitCurvature(r2.Point{X: 3, Y: 4}, 1), test.ShouldAlmostEqual, 0.32)
}

func TestToRobotFrame(t *testing.T) {
	p := toRobotFrame(r2.Point{X: 0, Y: 1}, r2.Point{}, math.Pi/2)
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0)

	p = toRobotFrame(r2.Point{X: 2, Y: 3}, r2.Point{X: 1, Y: 1}, 0)
	test.That(t, p, test.ShouldResemble, r2.Point{X: 1, Y: 2})
}

func TestLookAheadDistance(t *testing.T) {
	e := testEnv()
	test.That(t, e.lookAheadDistance(0), test.ShouldEqual, 4)
	test.That(t, e.lookAheadDistance(20), test.ShouldEqual, 10)
	test.That(t, e.lookAheadDistance(-20), test.ShouldEqual, 10)
}

func expectLimit(t *testing.T, e *env, in FloatWheelSpeeds, leftDir, rightDir float64, expected FloatWheelSpeeds) {
	t.Helper()
	got := e.limit(in, leftDir, rightDir)
	if math.Abs(got.Left-expected.Left) > 1e-9 || math.Abs(got.Right-expected.Right) > 1e-9 {
		t.Errorf("limit(%+v, %v, %v) = %+v, expected %+v", in, leftDir, rightDir, got, expected)
	}
}

func TestLimit(t *testing.T) {
	e := testEnv()
	expectLimit(t, e, FloatWheelSpeeds{Left: 30, Right: 40}, 1, 1, FloatWheelSpeeds{Left: 30, Right: 40})
	expectLimit(t, e, FloatWheelSpeeds{Left: 100, Right: 50}, 1, 1, FloatWheelSpeeds{Left: 60, Right: 30})
	expectLimit(t, e, FloatWheelSpeeds{Left: -120, Right: 60}, 1, 1, FloatWheelSpeeds{Left: -60, Right: 30})
	expectLimit(t, e, FloatWheelSpeeds{Left: 2, Right: -1}, 1, 1, FloatWheelSpeeds{Left: 5, Right: -5})
	expectLimit(t, e, FloatWheelSpeeds{}, 1, 1, FloatWheelSpeeds{Left: 5, Right: 5})
	expectLimit(t, e, FloatWheelSpeeds{}, -1, 1, FloatWheelSpeeds{Left: -5, Right: 5})
	expectLimit(t, e, FloatWheelSpeeds{}, 0, 0, FloatWheelSpeeds{})
}

func TestQuantize(t *testing.T) {
	test.That(t, FloatWheelSpeeds{Left: 5.9, Right: -5.9}.Quantize(), test.ShouldResemble, WheelSpeeds{Left: 5, Right: -5})
	test.That(t, FloatWheelSpeeds{Left: 1e6, Right: -1e6}.Quantize(), test.ShouldResemble, WheelSpeeds{Left: math.MaxInt16, Right: math.MinInt16})
	test.That(t, FloatWheelSpeeds{Left: math.NaN()}.Quantize(), test.ShouldResemble, WheelSpeeds{})
}

func TestStrings(t *testing.T) {
	test.That(t, OK.String(), test.ShouldEqual, "ok")
	test.That(t, ReturnCode(9).String(), test.ShouldEqual, "ReturnCode(9)")
	test.That(t, KindRotate.String(), test.ShouldEqual, "Rotate")
	test.That(t, Task{}.Kind(), test.ShouldEqual, KindStop)
	test.That(t, DriveStraight(12).String(), test.ShouldEqual, "DriveStraight(dist=12.0)")
	test.That(t, WheelSpeeds{Left: 1, Right: -2}.String(), test.ShouldEqual, "l=1 r=-2")
}

func TestRotateEndHeadingWraps(t *testing.T) {
	start := spinning()
	start.Orientation.Heading = 3
	start.GlobalHeading = 3

	task := expectStart(t, Rotate(2, 1), start, OK)
	test.That(t, task.EndState().Orientation.Heading, test.ShouldAlmostEqual, 4-2*math.Pi)
	test.That(t, task.EndState().GlobalHeading, test.ShouldAlmostEqual, 4.0)

	task = expectStart(t, Rotate(-2, -7), start, OK)
	test.That(t, task.EndState().Orientation.Heading, test.ShouldAlmostEqual, -4+2*math.Pi)
}
