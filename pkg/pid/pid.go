// Package pid is the stateful PID corrector shared by the trajectory tasks.
package pid

import (
	"time"

	einride "go.einride.tech/pid"
)

type Gains struct {
	Kp, Ki, Kd float64
}

// Controller corrects a desired rate against a measured one. Not safe for
// concurrent use; the motion controller serialises access.
type Controller struct {
	c einride.Controller
}

func New(g Gains) *Controller {
	return &Controller{
		c: einride.Controller{
			Config: einride.ControllerConfig{
				ProportionalGain: g.Kp,
				IntegralGain:     g.Ki,
				DerivativeGain:   g.Kd,
			},
		},
	}
}

// Process returns the correction to add to target: proportional on the current
// error, integral accumulated over dt and derivative on the change in error
// since the previous call. A non-positive dt leaves the state alone.
func (p *Controller) Process(target, measured float64, dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	p.c.Update(einride.ControllerInput{
		ReferenceSignal:  target,
		ActualSignal:     measured,
		SamplingInterval: dt,
	})
	return p.c.State.ControlSignal
}

// Reset clears the accumulated integral and the last error.
func (p *Controller) Reset() {
	p.c.Reset()
}

func (p *Controller) Integral() float64 {
	return p.c.State.ControlErrorIntegral
}

func (p *Controller) LastError() float64 {
	return p.c.State.ControlError
}

func (p *Controller) Gains() Gains {
	return Gains{
		Kp: p.c.Config.ProportionalGain,
		Ki: p.c.Config.IntegralGain,
		Kd: p.c.Config.DerivativeGain,
	}
}
