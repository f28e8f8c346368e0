// Package pubsub binds a multicast group to one message type.
//
// A Publisher may be shared by any number of goroutines. A Subscriber is a
// blocking single-reader pull; run it on a dedicated goroutine with Pump and
// drain the channel from the loop that owns the replica.
package pubsub

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/rs/zerolog"

	"posecast/internal/metrics"
	"posecast/internal/multicast"
	"posecast/internal/wire"
)

// Message kinds, used as metric labels and log fields.
const (
	KindPose    = "pose"
	KindCloud   = "cloud"
	KindCommand = "command"
)

type (
	PosePublisher     = Publisher[*wire.PoseUpdate]
	PoseSubscriber    = Subscriber[wire.PoseUpdate]
	CloudPublisher    = Publisher[*wire.PointCloud]
	CloudSubscriber   = Subscriber[wire.PointCloud]
	CommandPublisher  = Publisher[wire.Command]
	CommandSubscriber = Subscriber[wire.Command]
)

// Option configures a Publisher or Subscriber.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics records publish and receive counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Publisher sends values of type T to one multicast group.
type Publisher[T any] struct {
	conn    *multicast.Conn
	kind    string
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewPublisher binds ep for publishing kind messages.
func NewPublisher[T any](kind string, ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*Publisher[T], error) {
	o := buildOptions(opts)
	log = log.With().Str("kind", kind).Logger()
	conn, err := multicast.Bind(ep, log)
	if err != nil {
		return nil, fmt.Errorf("binding %s publisher: %w", kind, err)
	}
	return &Publisher[T]{conn: conn, kind: kind, metrics: o.metrics, log: log}, nil
}

// Publish encodes v and sends it as one datagram. Each call is a single
// write of a fully encoded buffer, so concurrent callers need no locking.
func (p *Publisher[T]) Publish(v T) error {
	if err := p.conn.Send(v); err != nil {
		p.metrics.PublishFailed(p.kind)
		return fmt.Errorf("publishing %s: %w", p.kind, err)
	}
	p.metrics.Published(p.kind)
	return nil
}

// Endpoint returns the group this publisher sends to.
func (p *Publisher[T]) Endpoint() netip.AddrPort { return p.conn.Endpoint() }

func (p *Publisher[T]) Close() error { return p.conn.Close() }

// Subscriber receives values of type T from one multicast group. Several
// subscribers on one group each get their own copy of every datagram.
type Subscriber[T any] struct {
	conn    *multicast.Conn
	kind    string
	metrics *metrics.Metrics
}

// NewSubscriber binds and joins ep for receiving kind messages.
func NewSubscriber[T any](kind string, ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*Subscriber[T], error) {
	o := buildOptions(opts)
	log = log.With().Str("kind", kind).Logger()
	conn, err := multicast.Bind(ep, log)
	if err != nil {
		return nil, fmt.Errorf("binding %s subscriber: %w", kind, err)
	}
	return &Subscriber[T]{conn: conn, kind: kind, metrics: o.metrics}, nil
}

// Next blocks until one datagram arrives and returns it decoded. A
// datagram that does not decode yields an error wrapping
// multicast.ErrMalformedPayload; callers should skip it.
func (s *Subscriber[T]) Next() (T, error) {
	var v T
	if err := s.conn.Receive(&v); err != nil {
		var zero T
		if errors.Is(err, multicast.ErrMalformedPayload) {
			s.metrics.DecodeFailed(s.kind)
		}
		return zero, err
	}
	s.metrics.Received(s.kind)
	return v, nil
}

// Kind returns the message kind this subscriber decodes.
func (s *Subscriber[T]) Kind() string { return s.kind }

// Close unblocks a pending Next.
func (s *Subscriber[T]) Close() error { return s.conn.Close() }

func NewPosePublisher(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*PosePublisher, error) {
	return NewPublisher[*wire.PoseUpdate](KindPose, ep, log, opts...)
}

func NewPoseSubscriber(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*PoseSubscriber, error) {
	return NewSubscriber[wire.PoseUpdate](KindPose, ep, log, opts...)
}

func NewCloudPublisher(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*CloudPublisher, error) {
	return NewPublisher[*wire.PointCloud](KindCloud, ep, log, opts...)
}

func NewCloudSubscriber(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*CloudSubscriber, error) {
	return NewSubscriber[wire.PointCloud](KindCloud, ep, log, opts...)
}

func NewCommandPublisher(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*CommandPublisher, error) {
	return NewPublisher[wire.Command](KindCommand, ep, log, opts...)
}

func NewCommandSubscriber(ep netip.AddrPort, log zerolog.Logger, opts ...Option) (*CommandSubscriber, error) {
	return NewSubscriber[wire.Command](KindCommand, ep, log, opts...)
}
