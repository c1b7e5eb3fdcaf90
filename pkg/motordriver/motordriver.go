// Package motordriver turns wheel speed setpoints into commands for the motor
// controller boards.
package motordriver

import (
	"sync"

	"github.com/edaniels/golog"

	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

// Interface is a motor driver that holds a hardware resource.
type Interface interface {
	smoothdriving.MotorDriver
	Close() error
}

// Dummy logs the setpoints it is given and remembers the last one.
type Dummy struct {
	logger golog.Logger

	lock  sync.Mutex
	last  smoothdriving.WheelSpeeds
	calls int
}

func NewDummy(logger golog.Logger) *Dummy {
	return &Dummy{logger: logger}
}

var _ Interface = (*Dummy)(nil)

func (d *Dummy) SetSpeeds(s smoothdriving.WheelSpeeds) error {
	d.lock.Lock()
	changed := d.calls == 0 || s != d.last
	d.last = s
	d.calls++
	d.lock.Unlock()

	if changed {
		d.logger.Debugw("dummy motors", "left", s.Left, "right", s.Right)
	}
	return nil
}

func (d *Dummy) Last() smoothdriving.WheelSpeeds {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.last
}

func (d *Dummy) Calls() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.calls
}

func (d *Dummy) Close() error {
	return nil
}

// scaleSpeed converts a wheel speed to a raw motor command, saturating at the
// int16 range.
func scaleSpeed(v int16, scale float64) int16 {
	raw := float64(v) * scale
	if raw >= 32767 {
		return 32767
	}
	if raw <= -32768 {
		return -32768
	}
	return int16(raw)
}
