package motordriver

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
	"go.uber.org/multierr"

	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

// DefaultSpeedFrameID is the frame the wheel controller listens on.
const DefaultSpeedFrameID = 0x120

const (
	speedFrameLength = 4
	transmitTimeout  = 5 * time.Millisecond
)

type frameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

// CAN sends wheel speeds as a single frame: left then right, little-endian
// int16 each.
type CAN struct {
	logger golog.Logger
	id     uint32
	scale  float64

	conn net.Conn
	tx   frameTransmitter
}

var _ Interface = (*CAN)(nil)

// DialCAN opens a socketcan interface such as "can0" or "vcan0".
func DialCAN(ctx context.Context, iface string, id uint32, scale float64, logger golog.Logger) (*CAN, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", iface)
	}
	c, err := newCAN(conn, socketcan.NewTransmitter(conn), id, scale, logger)
	if err != nil {
		return nil, multierr.Append(err, conn.Close())
	}
	return c, nil
}

func newCAN(conn net.Conn, tx frameTransmitter, id uint32, scale float64, logger golog.Logger) (*CAN, error) {
	if id > can.MaxID {
		return nil, errors.Errorf("frame id 0x%x out of range", id)
	}
	if scale <= 0 {
		return nil, errors.Errorf("motor scale must be positive, got %v", scale)
	}
	return &CAN{logger: logger, id: id, scale: scale, conn: conn, tx: tx}, nil
}

func (c *CAN) SetSpeeds(s smoothdriving.WheelSpeeds) error {
	raw := smoothdriving.WheelSpeeds{Left: scaleSpeed(s.Left, c.scale), Right: scaleSpeed(s.Right, c.scale)}
	ctx, cancel := context.WithTimeout(context.Background(), transmitTimeout)
	defer cancel()
	return errors.Wrap(c.tx.TransmitFrame(ctx, EncodeSpeeds(c.id, raw)), "transmitting speeds")
}

// Close sends a final zero command before closing the socket.
func (c *CAN) Close() error {
	err := c.SetSpeeds(smoothdriving.WheelSpeeds{})
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}

func EncodeSpeeds(id uint32, s smoothdriving.WheelSpeeds) can.Frame {
	f := can.Frame{ID: id, Length: speedFrameLength}
	binary.LittleEndian.PutUint16(f.Data[0:2], uint16(s.Left))
	binary.LittleEndian.PutUint16(f.Data[2:4], uint16(s.Right))
	return f
}

func DecodeSpeeds(f can.Frame) (smoothdriving.WheelSpeeds, error) {
	if f.IsRemote || f.Length != speedFrameLength {
		return smoothdriving.WheelSpeeds{}, errors.Errorf("not a speed frame: %v", f)
	}
	return smoothdriving.WheelSpeeds{
		Left:  int16(binary.LittleEndian.Uint16(f.Data[0:2])),
		Right: int16(binary.LittleEndian.Uint16(f.Data[2:4])),
	}, nil
}
