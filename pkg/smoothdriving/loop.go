package smoothdriving

import (
	"context"
	"sync"
)

// Loop ticks the controller at the configured frequency until ctx is done and
// then commands zero speed.
func (c *Controller) Loop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if err := c.motors.SetSpeeds(WheelSpeeds{}); err != nil {
			c.logger.Warnw("failed to stop motors", "error", err)
		}
		c.lock.Lock()
		c.lastSpeeds = WheelSpeeds{}
		c.lock.Unlock()
	}()

	freq := c.cfg.TickFrequency()
	ticker := c.clock.Ticker(freq.Period())
	defer ticker.Stop()

	c.logger.Infow("control loop running", "frequency", freq.String())
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("control loop stopping")
			return
		case <-ticker.C:
		}
		c.UpdateSpeeds(freq)
	}
}
