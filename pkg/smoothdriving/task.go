package smoothdriving

import (
	"fmt"
	"time"

	"github.com/jafd-robotics/smoothdrive/pkg/config"
	"github.com/jafd-robotics/smoothdrive/pkg/pid"
)

type Kind uint8

const (
	KindStop Kind = iota
	KindAccelerate
	KindDriveStraight
	KindRotate
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "Stop"
	case KindAccelerate:
		return "Accelerate"
	case KindDriveStraight:
		return "DriveStraight"
	case KindRotate:
		return "Rotate"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Task is one trajectory primitive. It is a plain value holding the storage of
// every variant inline, so the live task can be replaced by assignment without
// allocating. The zero value is a Stop task.
type Task struct {
	kind     Kind
	finished bool

	start RobotState
	end   RobotState

	accelerate    accelerate
	driveStraight driveStraight
	rotate        rotate
}

// Accelerate changes the forward speed to endSpeed over the signed distance.
func Accelerate(endSpeed, distance float64) Task {
	return Task{
		kind:       KindAccelerate,
		accelerate: accelerate{endSpeed: endSpeed, distance: distance},
	}
}

// DriveStraight holds the forward speed the robot has at start for distance.
func DriveStraight(distance float64) Task {
	return Task{
		kind:          KindDriveStraight,
		driveStraight: driveStraight{distance: distance},
	}
}

func Stop() Task {
	return Task{kind: KindStop}
}

// Rotate turns by the signed angle, capping the angular velocity magnitude at
// maxAngularVel.
func Rotate(maxAngularVel, angle float64) Task {
	return Task{
		kind:   KindRotate,
		rotate: rotate{maxAngularVel: maxAngularVel, angle: angle},
	}
}

func (t Task) Kind() Kind {
	return t.kind
}

func (t Task) Finished() bool {
	return t.finished
}

// StartState is the state the task was started from.
func (t Task) StartState() RobotState {
	return t.start
}

// EndState is the state the task predicts at completion.
func (t Task) EndState() RobotState {
	return t.end
}

// TotalTime is the planned duration in seconds, zero for Stop and
// DriveStraight.
func (t Task) TotalTime() float64 {
	switch t.kind {
	case KindAccelerate:
		return t.accelerate.totalTime
	case KindRotate:
		return t.rotate.totalTime
	}
	return 0
}

func (t Task) String() string {
	switch t.kind {
	case KindAccelerate:
		return fmt.Sprintf("Accelerate(end=%.1f, dist=%.1f)", t.accelerate.endSpeed, t.accelerate.distance)
	case KindDriveStraight:
		return fmt.Sprintf("DriveStraight(dist=%.1f)", t.driveStraight.distance)
	case KindRotate:
		return fmt.Sprintf("Rotate(maxVel=%.2f, angle=%.2f)", t.rotate.maxAngularVel, t.rotate.angle)
	}
	return "Stop"
}

// env is what a task needs from the controller that owns it.
type env struct {
	cfg        config.Config
	forwardPID *pid.Controller
	angularPID *pid.Controller
}

func newEnv(cfg config.Config) env {
	return env{
		cfg:        cfg,
		forwardPID: pid.New(pid.Gains(cfg.ForwardVelPID)),
		angularPID: pid.New(pid.Gains(cfg.AngularVelPID)),
	}
}

func (e *env) resetPIDs() {
	e.forwardPID.Reset()
	e.angularPID.Reset()
}

// startTask validates the parameters against start and derives the trajectory
// constants. On failure t must be discarded.
func (t *Task) startTask(start RobotState, e *env) ReturnCode {
	t.finished = false
	t.start = start
	switch t.kind {
	case KindAccelerate:
		return t.startAccelerate(start)
	case KindDriveStraight:
		return t.startDriveStraight(start)
	case KindRotate:
		return t.startRotate(start, e)
	}
	return t.startStop(start, e)
}

// updateSpeeds computes the setpoint for one tick of length dt.
func (t *Task) updateSpeeds(state RobotState, dt time.Duration, e *env) WheelSpeeds {
	switch t.kind {
	case KindAccelerate:
		return t.updateAccelerate(state, dt, e)
	case KindDriveStraight:
		return t.updateDriveStraight(state, dt, e)
	case KindRotate:
		return t.updateRotate(state, dt, e)
	}
	return t.updateStop(e)
}

// finish marks the task done. The flag never goes back to false while the
// task stays live.
func (t *Task) finish(e *env) {
	if t.finished {
		return
	}
	t.finished = true
	e.resetPIDs()
}
