package pubsub

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"posecast/internal/multicast"
)

// Pump is the dedicated poll loop for sub. It calls Next until ctx is done,
// forwarding every decoded value to out. Malformed datagrams are logged and
// skipped. When ctx is cancelled the subscriber is closed to unblock the
// pending receive and Pump returns nil; any other receive error is
// returned.
func Pump[T any](ctx context.Context, sub *Subscriber[T], out chan<- T, log zerolog.Logger) error {
	stop := context.AfterFunc(ctx, func() { sub.Close() })
	defer stop()

	for {
		v, err := sub.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, multicast.ErrMalformedPayload) {
				log.Debug().Err(err).Str("kind", sub.Kind()).Msg("Dropping malformed datagram")
				continue
			}
			return err
		}
		select {
		case out <- v:
		case <-ctx.Done():
			return nil
		}
	}
}

// Drain hands every value already queued on ch to apply without blocking
// and returns how many were applied.
func Drain[T any](ch <-chan T, apply func(T)) int {
	n := 0
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return n
			}
			apply(v)
			n++
		default:
			return n
		}
	}
}
