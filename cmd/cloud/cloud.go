// Package cloud implements the demo point-cloud publisher.
package cloud

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

// Options configures the published cloud.
type Options struct {
	ID          string
	ParentFrame string
	Points      int
	Color       string
	Period      time.Duration
}

// DefaultOptions matches the rotate demo: a cyan circle anchored to the
// rotating cube, restated five times a second.
func DefaultOptions() Options {
	return Options{
		ID:          "example cloud",
		ParentFrame: "rotated_object",
		Points:      2000,
		Color:       wire.Cyan.String(),
		Period:      200 * time.Millisecond,
	}
}

// circle samples n points along a unit circle, 0.01 rad apart, wrapping
// after 2π. Coordinates are rounded to 0.1mm so 2000 points stay well under
// one datagram.
func circle(n int) []wire.Point2 {
	pts := make([]wire.Point2, n)
	for i := range pts {
		a := float64(i) * 0.01
		pts[i] = wire.Point2{round4(math.Sin(a)), round4(math.Cos(a))}
	}
	return pts
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func build(opts Options) (*wire.PointCloud, error) {
	color, err := wire.ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}
	if opts.Points < 0 {
		return nil, fmt.Errorf("point count %d must not be negative", opts.Points)
	}

	pc := wire.NewPointCloud(opts.ID, circle(opts.Points)).WithColor(color)
	if opts.ParentFrame != "" {
		pc.WithParentFrame(opts.ParentFrame)
	}
	return pc, nil
}

// Run restates the cloud every period until interrupted.
func Run(configPath string, opts Options) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	pc, err := build(opts)
	if err != nil {
		return err
	}
	payload, err := wire.Marshal(pc)
	if err != nil {
		return fmt.Errorf("encoding cloud: %w", err)
	}
	if len(payload) > multicast.MaxDatagramSize {
		return fmt.Errorf("cloud encodes to %d bytes, over the %d byte datagram limit", len(payload), multicast.MaxDatagramSize)
	}

	ep, err := multicast.ParseEndpoint(cfg.Multicast.Clouds)
	if err != nil {
		return fmt.Errorf("parsing cloud endpoint: %w", err)
	}
	pub, err := pubsub.NewCloudPublisher(ep, log)
	if err != nil {
		return fmt.Errorf("binding cloud publisher: %w", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("endpoint", ep.String()).
		Str("id", opts.ID).
		Int("points", opts.Points).
		Int("bytes", len(payload)).
		Msg("Publishing point cloud")

	ticker := time.NewTicker(opts.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cloud publisher stopped")
			return nil
		case <-ticker.C:
			if err := pub.Publish(pc); err != nil {
				return fmt.Errorf("publishing cloud: %w", err)
			}
		}
	}
}
