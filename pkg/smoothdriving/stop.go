package smoothdriving

import "github.com/golang/geo/r3"

func (t *Task) startStop(start RobotState, e *env) ReturnCode {
	e.resetPIDs()
	t.end = start
	t.end.ForwardVel = 0
	t.end.WheelSpeeds = FloatWheelSpeeds{}
	t.end.AngularVel = r3.Vector{}
	return OK
}

// updateStop commands zero on every tick; the task is done the first time.
func (t *Task) updateStop(e *env) WheelSpeeds {
	t.finish(e)
	return WheelSpeeds{}
}
