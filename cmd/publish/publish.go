// Package publish implements the demo pose publishers.
package publish

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posecast/internal/metrics"
	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

// Pattern names accepted by Run.
const (
	PatternBounce = "bounce"
	PatternRotate = "rotate"
)

// Options selects the demo pattern.
type Options struct {
	Pattern string
	// Cycles bounds the rotate pattern; zero runs until interrupted. The
	// bounce pattern always runs bounceCycles and then deletes its sphere.
	Cycles int
}

// pattern returns the batch for step, or nil once the pattern is done.
type pattern func(step int) *wire.PoseUpdate

const (
	bounceCycles = 4
	halfSweep    = 101 // steps per direction, 0..100 inclusive
	fullSweep    = 2 * halfSweep
)

// bounce lowers a sphere and a line from 1m to the floor, raises them again
// as a cyan cube and a magenta line, repeats, then deletes the sphere id.
// The line is left to time out.
func bounce(step int) *wire.PoseUpdate {
	if step > bounceCycles*fullSweep {
		return nil
	}
	u := wire.NewPoseUpdate()
	if step == bounceCycles*fullSweep {
		u.Remove("obj_a")
		return u
	}

	k := step % fullSweep
	if k < halfSweep {
		z := 0.01 * float64(halfSweep-1-k)
		u.Add("obj_a", wire.Point3{0, 0, z}).WithShape(wire.Sphere{Radius: 0.4})
		u.Add("test line", wire.Point3{0, 0, z}).WithShape(wire.Line{})
		return u
	}

	z := 0.01 * float64(k-halfSweep)
	u.Add("obj_a", wire.Point3{0, 0, z}).
		WithColor(wire.Cyan).
		WithShape(wire.Cube{X: 0.3, Y: 0.01, Z: 0.01})
	u.Add("test line", wire.Point3{0, 0, z}).
		WithShape(wire.Line{}).
		WithColor(wire.Magenta)
	return u
}

// rotatePattern raises a thin cube while blending its orientation from a
// half turn about x to a half turn about z, then reverses.
func rotatePattern(cycles int) pattern {
	return func(step int) *wire.PoseUpdate {
		if cycles > 0 && step >= cycles*fullSweep {
			return nil
		}
		k := step % fullSweep
		var s float64
		if k < halfSweep {
			s = float64(k) / 100
		} else {
			s = float64(fullSweep-1-k) / 100
		}

		u := wire.NewPoseUpdate()
		u.Add("rotated_object", wire.Point3{0, 0, s}).
			WithShape(wire.Cube{X: 0.3, Y: 0.01, Z: 0.01}).
			WithRotation(wire.Quaternion{1 - s, 0, s, 0})
		return u
	}
}

func patternFor(opts Options) (pattern, error) {
	switch opts.Pattern {
	case "", PatternBounce:
		return bounce, nil
	case PatternRotate:
		return rotatePattern(opts.Cycles), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q (want %s or %s)", opts.Pattern, PatternBounce, PatternRotate)
	}
}

// Run publishes the selected pattern to the pose group at the configured
// interval until it finishes or the process is interrupted.
func Run(configPath string, opts Options) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	p, err := patternFor(opts)
	if err != nil {
		return err
	}
	interval, err := cfg.Publisher.ParseInterval()
	if err != nil {
		return fmt.Errorf("parsing interval: %w", err)
	}
	ep, err := multicast.ParseEndpoint(cfg.Multicast.Poses)
	if err != nil {
		return fmt.Errorf("parsing pose endpoint: %w", err)
	}

	m := metrics.New()
	pub, err := pubsub.NewPosePublisher(ep, log, pubsub.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("binding pose publisher: %w", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("endpoint", ep.String()).
		Str("pattern", opts.Pattern).
		Dur("interval", interval).
		Msg("Publishing poses")

	n, err := play(ctx, p, interval, pub.Publish)
	log.Info().Int("batches", n).Msg("Publisher stopped")
	return err
}

// play sends p's batches one per interval. It returns the number sent.
func play(ctx context.Context, p pattern, interval time.Duration, publish func(*wire.PoseUpdate) error) (int, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := 0; ; step++ {
		u := p(step)
		if u == nil {
			return step, nil
		}
		if err := publish(u); err != nil {
			return step, fmt.Errorf("publishing batch %d: %w", step, err)
		}

		select {
		case <-ctx.Done():
			return step + 1, nil
		case <-ticker.C:
		}
	}
}
