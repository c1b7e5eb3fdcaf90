// motortest ramps the wheel motors up and down through one of the drivers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/jafd-robotics/smoothdrive/pkg/motordriver"
	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

func main() {
	logger := golog.NewDevelopmentLogger("motortest")

	app := &cli.App{
		Name:  "motortest",
		Usage: "exercise a motor driver",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Value: "dummy", Usage: "one of dummy, pico, can"},
			&cli.StringFlag{Name: "iface", Value: "can0", Usage: "socketcan interface for the can driver"},
			&cli.UintFlag{Name: "frame-id", Value: motordriver.DefaultSpeedFrameID, Usage: "CAN frame id for speed commands"},
			&cli.Float64Flag{Name: "scale", Usage: "raw motor units per unit of wheel speed, 0 for the driver default"},
			&cli.IntFlag{Name: "speed", Value: 30, Usage: "peak wheel speed"},
			&cli.DurationFlag{Name: "watchdog", Value: time.Second, Usage: "pico watchdog timeout, 0 disables"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()
			return run(ctx, c, logger)
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func scaleOr(c *cli.Context, def float64) float64 {
	if s := c.Float64("scale"); s != 0 {
		return s
	}
	return def
}

func openDriver(ctx context.Context, c *cli.Context, logger golog.Logger) (motordriver.Interface, *motordriver.Pico, error) {
	switch c.String("driver") {
	case "dummy":
		return motordriver.NewDummy(logger), nil, nil
	case "pico":
		pico, err := motordriver.NewPicoWithWatchdog(scaleOr(c, motordriver.DefaultPicoScale), c.Duration("watchdog"), logger)
		if err != nil {
			return nil, nil, err
		}
		return pico, pico, nil
	case "can":
		drv, err := motordriver.DialCAN(ctx, c.String("iface"), uint32(c.Uint("frame-id")), scaleOr(c, 1), logger)
		return drv, nil, err
	}
	return nil, nil, errors.Errorf("unknown driver %q", c.String("driver"))
}

func run(ctx context.Context, c *cli.Context, logger golog.Logger) (err error) {
	drv, pico, err := openDriver(ctx, c, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := drv.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	peak := c.Int("speed")
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	step, dir := 0, 1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		speed := int16(step * peak / 10)
		if err := drv.SetSpeeds(smoothdriving.WheelSpeeds{Left: speed, Right: -speed}); err != nil {
			logger.Warnw("set speeds failed", "error", err)
		}
		step += dir
		if step == 10 || step == -10 {
			dir = -dir
		}

		if pico != nil && step%5 == 0 {
			tel, err := pico.Telemetry()
			if err != nil {
				logger.Warnw("telemetry read failed", "error", err)
				continue
			}
			logger.Infof("%.1fC %.2fV %.3fA Status=%x", tel.TemperatureC, tel.BattVolts, tel.CurrentAmps, tel.Status)
		}
	}
}
