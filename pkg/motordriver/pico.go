package motordriver

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/exp/io/i2c"

	"github.com/jafd-robotics/smoothdrive/pkg/chassis"
	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

const (
	PicoAddr = 0x42
	PicoBus  = "/dev/i2c-1"
)

type Register byte

const (
	RegCtrl Register = iota
	RegStatus
	RegWatchdogTimeout
	RegFaultCount

	RegMotLeftV
	RegMotRightV

	RegBattV // LSB=4mV
	RegCurrent
	RegTemperature // LSB=0.01C
)

const (
	BattVLSB       = 0.004
	CurrentLSB     = 0.0001831054688
	TemperatureLSB = 0.01
)

const (
	RegCtrlEnableI2CControl uint16 = 1 << iota
	RegCtrlRun
	RegCtrlReset
	RegCtrlWatchdogEnable
)

type StatusFlag uint16

const (
	RegStatusFault StatusFlag = 1 << iota
	RegStatusWatchdogExpired
)

// PicoCountsPerRev is the board's speed resolution: one wheel revolution per
// second is this many raw units.
const PicoCountsPerRev = 256

// DefaultPicoScale converts wheel speed in cm/s to raw Pico units for the
// chassis wheels.
const DefaultPicoScale = PicoCountsPerRev / chassis.WheelCircumCM

const (
	writeRetries       = 20
	configRefreshAfter = 100 * time.Millisecond
)

// i2cConn is the subset of *i2c.Device the driver uses.
type i2cConn interface {
	Write(buf []byte) error
	ReadReg(reg byte, buf []byte) error
	Close() error
}

// Pico drives the two wheel motors through the Pico motor board over I2C.
// Not safe for concurrent use.
type Pico struct {
	logger golog.Logger
	open   func() (i2cConn, error)
	dev    i2cConn

	// Raw motor units per unit of wheel speed.
	scale float64

	lastConfigWord  uint16
	lastConfigTime  time.Time
	watchdogEnabled bool
}

var _ Interface = (*Pico)(nil)

// NewPicoWithWatchdog opens the board and arms its watchdog. The board is
// closed again if the watchdog can't be set.
func NewPicoWithWatchdog(scale float64, timeout time.Duration, logger golog.Logger) (*Pico, error) {
	return newPicoWithWatchdog(func() (i2cConn, error) {
		return i2c.Open(&i2c.Devfs{Dev: PicoBus}, PicoAddr)
	}, scale, timeout, logger)
}

func newPicoWithWatchdog(open func() (i2cConn, error), scale float64, timeout time.Duration, logger golog.Logger) (*Pico, error) {
	p, err := newPico(open, scale, logger)
	if err != nil {
		return nil, err
	}
	if err := p.SetWatchdog(timeout); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "enabling watchdog"), p.dev.Close())
	}
	return p, nil
}

func newPico(open func() (i2cConn, error), scale float64, logger golog.Logger) (*Pico, error) {
	if scale <= 0 {
		return nil, errors.Errorf("motor scale must be positive, got %v", scale)
	}
	dev, err := open()
	if err != nil {
		return nil, errors.Wrap(err, "opening Pico motor board")
	}
	return &Pico{
		logger: logger,
		open:   open,
		dev:    dev,
		scale:  scale,
	}, nil
}

// Reset stops the motors and drops the board out of run mode.
func (p *Pico) Reset() error {
	return p.maybeConfigure(true, false)
}

// SetWatchdog makes the board stop the motors if it hears nothing for timeout.
// Zero disables it.
func (p *Pico) SetWatchdog(timeout time.Duration) error {
	if timeout == 0 {
		p.watchdogEnabled = false
		return p.maybeConfigure(false, false)
	}

	ms := timeout.Milliseconds()
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	if err := p.writeReg(RegWatchdogTimeout, uint16(ms)); err != nil {
		return err
	}
	p.watchdogEnabled = true
	return p.maybeConfigure(false, false)
}

func (p *Pico) SetSpeeds(s smoothdriving.WheelSpeeds) error {
	if err := p.maybeConfigure(false, true); err != nil {
		return err
	}
	if err := p.writeReg(RegMotLeftV, uint16(scaleSpeed(s.Left, p.scale))); err != nil {
		return err
	}
	return p.writeReg(RegMotRightV, uint16(scaleSpeed(s.Right, p.scale)))
}

func (p *Pico) Close() error {
	return multierr.Append(p.Reset(), p.dev.Close())
}

func (p *Pico) writeWithRetries(data []byte) error {
	var err error
	for tries := 0; tries < writeRetries; tries++ {
		err = p.dev.Write(data)
		if err == nil {
			if tries > 0 {
				p.logger.Infow("wrote to Pico after retries", "retries", tries)
			}
			return nil
		}
		p.logger.Debugw("failed to write to Pico", "error", err)
		time.Sleep(time.Millisecond)
		_ = p.dev.Close()
		dev, openErr := p.open()
		if openErr != nil {
			err = multierr.Append(err, openErr)
			continue
		}
		p.dev = dev
	}
	return errors.Wrapf(err, "writing Pico register 0x%02x", data[0])
}

func (p *Pico) maybeConfigure(resetMotorSpeeds bool, enableMotors bool) error {
	configWord := RegCtrlEnableI2CControl
	if resetMotorSpeeds {
		configWord |= RegCtrlReset
	}
	if enableMotors {
		configWord |= RegCtrlRun
	}
	if p.watchdogEnabled {
		configWord |= RegCtrlWatchdogEnable
	}

	// Rewrite periodically anyway in case the board rebooted.
	if configWord == p.lastConfigWord && time.Since(p.lastConfigTime) < configRefreshAfter {
		return nil
	}
	if err := p.writeReg(RegCtrl, configWord); err != nil {
		return err
	}
	p.lastConfigTime = time.Now()
	p.lastConfigWord = configWord &^ RegCtrlReset // Reset is not persistent.
	return nil
}

type Telemetry struct {
	BattVolts    float64
	CurrentAmps  float64
	TemperatureC float64
	Status       StatusFlag
}

// Telemetry reads every monitoring register, collecting all failures.
func (p *Pico) Telemetry() (Telemetry, error) {
	var t Telemetry
	var errs error
	read := func(reg Register, lsb float64, out *float64) {
		raw, err := p.readReg(reg)
		errs = multierr.Append(errs, err)
		*out = float64(raw) * lsb
	}
	read(RegBattV, BattVLSB, &t.BattVolts)
	read(RegCurrent, CurrentLSB, &t.CurrentAmps)
	read(RegTemperature, TemperatureLSB, &t.TemperatureC)

	status, err := p.readReg(RegStatus)
	errs = multierr.Append(errs, err)
	t.Status = StatusFlag(status)
	return t, errs
}

func (p *Pico) writeReg(reg Register, value uint16) error {
	return p.writeWithRetries(encodeRegWrite(reg, value))
}

func (p *Pico) readReg(reg Register) (uint16, error) {
	var buf [2]byte
	if err := p.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, errors.Wrapf(err, "reading Pico register 0x%02x", byte(reg))
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// encodeRegWrite is the register number followed by the big-endian value.
func encodeRegWrite(reg Register, value uint16) []byte {
	buf := []byte{byte(reg), 0, 0}
	binary.BigEndian.PutUint16(buf[1:], value)
	return buf
}
