// Package command publishes control commands on the command group.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

// Options describes the commands to send. When From and To are both set
// the command is derived from a drag between them; otherwise Point, Angle
// and Length are sent as given.
type Options struct {
	ID     uint32
	Point  string
	Angle  float64
	Length float64
	From   string
	To     string
	// Repeat sends Count commands with consecutive ids, Interval apart.
	Count    int
	Interval time.Duration
}

// ParsePoint parses "x,y" or "x,y,z" into a 3D point; a missing z is zero.
func ParsePoint(s string) (wire.Point3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return wire.Point3{}, fmt.Errorf("point %q: want x,y or x,y,z", s)
	}
	var p wire.Point3
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return wire.Point3{}, fmt.Errorf("point %q: %w", s, err)
		}
		p[i] = v
	}
	return p, nil
}

// build returns the first command described by opts.
func build(opts Options) (wire.Command, error) {
	if opts.From != "" || opts.To != "" {
		if opts.From == "" || opts.To == "" {
			return wire.Command{}, fmt.Errorf("a drag needs both --from and --to")
		}
		from, err := ParsePoint(opts.From)
		if err != nil {
			return wire.Command{}, err
		}
		to, err := ParsePoint(opts.To)
		if err != nil {
			return wire.Command{}, err
		}
		return wire.CommandFromDrag(opts.ID, from, to), nil
	}

	var point wire.Point3
	if opts.Point != "" {
		var err error
		if point, err = ParsePoint(opts.Point); err != nil {
			return wire.Command{}, err
		}
	}
	return wire.NewCommand(opts.ID, wire.Point2{point[0], point[1]}, opts.Angle, opts.Length), nil
}

// sequence returns count commands with monotonically increasing ids
// starting at first.ID.
func sequence(first wire.Command, count int) []wire.Command {
	if count < 1 {
		count = 1
	}
	out := make([]wire.Command, count)
	for i := range out {
		c := first
		c.ID = first.ID + uint32(i)
		out[i] = c
	}
	return out
}

// Run publishes the commands described by opts.
func Run(configPath string, opts Options) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	first, err := build(opts)
	if err != nil {
		return err
	}

	ep, err := multicast.ParseEndpoint(cfg.Multicast.Commands)
	if err != nil {
		return fmt.Errorf("parsing command endpoint: %w", err)
	}
	pub, err := pubsub.NewCommandPublisher(ep, log)
	if err != nil {
		return fmt.Errorf("binding command publisher: %w", err)
	}
	defer pub.Close()

	cmds := sequence(first, opts.Count)
	for i, c := range cmds {
		if i > 0 && opts.Interval > 0 {
			time.Sleep(opts.Interval)
		}
		if err := pub.Publish(c); err != nil {
			return fmt.Errorf("publishing command %d: %w", c.ID, err)
		}
		log.Info().
			Uint32("id", c.ID).
			Floats64("point", c.Point[:]).
			Float64("angle", c.Angle).
			Float64("length", c.Length).
			Msg("Command sent")
	}
	return nil
}
