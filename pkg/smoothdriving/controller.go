package smoothdriving

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"

	"github.com/jafd-robotics/smoothdrive/pkg/config"
)

// Controller owns the live trajectory task. The Set* methods may be called from
// any goroutine while UpdateSpeeds runs from the control loop; both sides take
// the same lock so a tick never sees a half-replaced task.
type Controller struct {
	cfg    config.Config
	source StateSource
	motors MotorDriver
	logger golog.Logger
	clock  clock.Clock

	lock       sync.Mutex
	live       Task
	env        env
	lastSpeeds WheelSpeeds
}

type Option func(c *Controller)

// WithClock replaces the wall clock that drives Loop.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// New creates a controller with a finished Stop task live, so the first task
// can be set without forcing.
func New(cfg config.Config, source StateSource, motors MotorDriver, logger golog.Logger, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if source == nil || motors == nil {
		return nil, errors.New("state source and motor driver are required")
	}
	if logger == nil {
		logger = golog.Global()
	}
	c := &Controller{
		cfg:    cfg,
		source: source,
		motors: motors,
		logger: logger,
		clock:  clock.New(),
		env:    newEnv(cfg),
	}
	for _, o := range opts {
		o(c)
	}

	c.live = Stop()
	c.live.startTask(source.RobotState(), &c.env)
	c.live.finish(&c.env)
	return c, nil
}

// SetNewTask starts task from the current state estimate.
func (c *Controller) SetNewTask(task Task, force bool) ReturnCode {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.switchTaskLocked(task, func() RobotState { return c.source.RobotState() }, force)
}

// SetNewTaskFromLastEnd starts task from the end state predicted by the live
// task, so chained trajectories don't accumulate estimation noise.
func (c *Controller) SetNewTaskFromLastEnd(task Task, force bool) ReturnCode {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.switchTaskLocked(task, func() RobotState { return c.live.end }, force)
}

// SetNewTaskWithState starts task from a caller supplied state.
func (c *Controller) SetNewTaskWithState(task Task, start RobotState, force bool) ReturnCode {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.switchTaskLocked(task, func() RobotState { return start }, force)
}

// switchTaskLocked starts task on a scratch copy and only commits it if that
// succeeds. The start state is sampled after the busy check so a rejected
// request doesn't touch the state source.
func (c *Controller) switchTaskLocked(task Task, startState func() RobotState, force bool) ReturnCode {
	if !c.live.finished && !force {
		c.logger.Debugw("task rejected, live task still running", "live", c.live, "requested", task)
		return Error
	}

	candidate := task
	if rc := candidate.startTask(startState(), &c.env); rc != OK {
		c.logger.Infow("task failed to start", "requested", task, "result", rc)
		return rc
	}

	replaced := c.live
	c.live = candidate
	c.env.resetPIDs()
	c.logger.Debugw("task started", "task", c.live, "replaced", replaced, "forced", force && !replaced.finished)
	return OK
}

// UpdateSpeeds runs one control tick at the given loop frequency and forwards
// the setpoint to the motor driver.
func (c *Controller) UpdateSpeeds(freq physic.Frequency) {
	var dt time.Duration
	if freq > 0 {
		dt = freq.Period()
	}

	c.lock.Lock()
	state := c.source.RobotState()
	speeds := c.live.updateSpeeds(state, dt, &c.env)
	c.lastSpeeds = speeds
	c.lock.Unlock()

	if err := c.motors.SetSpeeds(speeds); err != nil {
		c.logger.Warnw("failed to set motor speeds", "speeds", speeds, "error", err)
	}
}

// IsTaskFinished reports whether the live task has completed.
func (c *Controller) IsTaskFinished() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.live.finished
}

// LastSpeeds is the setpoint produced by the most recent tick.
func (c *Controller) LastSpeeds() WheelSpeeds {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastSpeeds
}

// CurrentTask returns a copy of the live task.
func (c *Controller) CurrentTask() Task {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.live
}

func (c *Controller) Config() config.Config {
	return c.cfg
}
