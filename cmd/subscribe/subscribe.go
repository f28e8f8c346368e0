// Package subscribe prints every message received on one group.
package subscribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

// Run subscribes to the group for kind ("pose", "cloud" or "command") and
// writes each decoded message to stdout as one JSON line until
// interrupted.
func Run(configPath, kind string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kind {
	case pubsub.KindPose:
		ep, err := multicast.ParseEndpoint(cfg.Multicast.Poses)
		if err != nil {
			return fmt.Errorf("parsing pose endpoint: %w", err)
		}
		sub, err := pubsub.NewPoseSubscriber(ep, log)
		if err != nil {
			return fmt.Errorf("binding pose subscriber: %w", err)
		}
		return follow(ctx, sub, os.Stdout, log)
	case pubsub.KindCloud:
		ep, err := multicast.ParseEndpoint(cfg.Multicast.Clouds)
		if err != nil {
			return fmt.Errorf("parsing cloud endpoint: %w", err)
		}
		sub, err := pubsub.NewCloudSubscriber(ep, log)
		if err != nil {
			return fmt.Errorf("binding cloud subscriber: %w", err)
		}
		return follow(ctx, sub, os.Stdout, log)
	case pubsub.KindCommand:
		ep, err := multicast.ParseEndpoint(cfg.Multicast.Commands)
		if err != nil {
			return fmt.Errorf("parsing command endpoint: %w", err)
		}
		sub, err := pubsub.NewCommandSubscriber(ep, log)
		if err != nil {
			return fmt.Errorf("binding command subscriber: %w", err)
		}
		return follow(ctx, sub, os.Stdout, log)
	default:
		return fmt.Errorf("unknown kind %q (want pose, cloud or command)", kind)
	}
}

func follow[T any](ctx context.Context, sub *pubsub.Subscriber[T], w io.Writer, log zerolog.Logger) error {
	defer sub.Close()
	log.Info().Str("kind", sub.Kind()).Msg("Listening")

	ch := make(chan T, 64)
	errCh := make(chan error, 1)
	go func() { errCh <- pubsub.Pump(ctx, sub, ch, log) }()

	for {
		select {
		case v := <-ch:
			if err := printLine(w, v); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		}
	}
}

func printLine(w io.Writer, v any) error {
	data, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
