package recorder

import (
	"context"
	"fmt"
	"time"
)

// Source yields raw datagrams. *multicast.Conn satisfies it.
type Source interface {
	ReadRaw() ([]byte, error)
	Close() error
}

// Capture appends every datagram read from src to the session under kind
// until ctx is cancelled. Offsets are measured from the session start.
// Closing src on cancel unblocks the pending read.
func Capture(ctx context.Context, s *Store, sess Session, kind string, src Source) error {
	stop := context.AfterFunc(ctx, func() { src.Close() })
	defer stop()

	for {
		payload, err := src.ReadRaw()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("capturing %s: %w", kind, err)
		}

		f := Frame{
			Kind:    kind,
			Offset:  time.Since(sess.Started),
			Payload: payload,
		}
		if err := s.Append(sess.ID, f); err != nil {
			return fmt.Errorf("appending %s frame: %w", kind, err)
		}
		s.log.Trace().Str("kind", kind).Int("bytes", len(payload)).Msg("Frame captured")
	}
}

// Replay hands frames to send at their recorded offsets divided by speed,
// so speed 2 plays twice as fast. It returns ctx.Err() when cancelled
// between frames and the first send error otherwise.
func Replay(ctx context.Context, frames []Frame, speed float64, send func(Frame) error) error {
	if speed <= 0 {
		return fmt.Errorf("invalid replay speed %v", speed)
	}

	start := time.Now()
	for _, f := range frames {
		due := start.Add(time.Duration(float64(f.Offset) / speed))
		if wait := time.Until(due); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := send(f); err != nil {
			return fmt.Errorf("replaying %s frame: %w", f.Kind, err)
		}
	}
	return nil
}
