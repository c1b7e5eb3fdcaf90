// trajsim drives the trajectory controller against the kinematic simulator and
// draws the path it took.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/jafd-robotics/smoothdrive/pkg/angle"
	"github.com/jafd-robotics/smoothdrive/pkg/config"
	"github.com/jafd-robotics/smoothdrive/pkg/sim"
	"github.com/jafd-robotics/smoothdrive/pkg/smoothdriving"
)

const (
	flagConfig = "config"
	flagOut    = "out"
	flagSteps  = "steps"
	flagSize   = "size"
	flagDebug  = "debug"
)

// demoSequence accelerates away, cruises, slows, turns left and comes to a
// halt. Each task is chained from the previous one's end state.
func demoSequence() []smoothdriving.Task {
	return []smoothdriving.Task{
		smoothdriving.Accelerate(40, 60),
		smoothdriving.DriveStraight(80),
		smoothdriving.Accelerate(10, 40),
		smoothdriving.Rotate(1.5, math.Pi/2),
		smoothdriving.Accelerate(30, 50),
		smoothdriving.Accelerate(0, 40),
		smoothdriving.Stop(),
	}
}

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "trajsim",
		Usage: "run a trajectory sequence in simulation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "load tuning from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("trajsim")
			} else {
				logger = golog.NewDevelopmentLogger("trajsim")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the demo sequence",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write the driven path as a PNG to `FILE`",
					},
					&cli.IntFlag{
						Name:  flagSteps,
						Value: 5000,
						Usage: "give up on a task after this many ticks",
					},
					&cli.IntFlag{
						Name:  flagSize,
						Value: 600,
						Usage: "PNG width and height in pixels",
					},
				},
				Action: func(c *cli.Context) error {
					return run(c, logger)
				},
			},
			{
				Name:  "dump-config",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String(flagConfig))
					if err != nil {
						return err
					}
					out, err := cfg.Marshal()
					if err != nil {
						return err
					}
					fmt.Print(string(out))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context, logger golog.Logger) error {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return err
	}
	robot := sim.NewRobot(cfg.Mechanics.TrackWidth)
	controller, err := smoothdriving.New(cfg, robot, robot, logger)
	if err != nil {
		return err
	}

	freq := cfg.TickFrequency()
	period := freq.Period()
	maxSteps := c.Int(flagSteps)
	for i, task := range demoSequence() {
		if rc := controller.SetNewTaskFromLastEnd(task, false); rc != smoothdriving.OK {
			return errors.Errorf("task %d (%v) refused: %v", i, task, rc)
		}
		steps := 0
		for ; steps < maxSteps && !controller.IsTaskFinished(); steps++ {
			controller.UpdateSpeeds(freq)
			robot.Step(period)
		}
		if !controller.IsTaskFinished() {
			return errors.Errorf("task %d (%v) did not finish in %d ticks", i, task, maxSteps)
		}

		s := robot.RobotState()
		heading := angle.Wrap(s.Orientation.Heading)
		planned := angle.Wrap(controller.CurrentTask().EndState().Orientation.Heading)
		logger.Infow("task done",
			"task", task.String(),
			"ticks", steps,
			"x", fmt.Sprintf("%.1f", s.Position.X),
			"y", fmt.Sprintf("%.1f", s.Position.Y),
			"heading", fmt.Sprintf("%.1f", heading.Degrees()),
			"heading_error", fmt.Sprintf("%.1f", angle.Heading(heading.ErrorTo(planned)).Degrees()))
	}

	track := robot.Track()
	logger.Infow("sequence complete", "distance", fmt.Sprintf("%.1f", track.Length()))
	if out := c.String(flagOut); out != "" {
		if err := track.RenderPNG(out, c.Int(flagSize)); err != nil {
			return err
		}
		logger.Infow("wrote path", "file", out)
	}
	return nil
}
