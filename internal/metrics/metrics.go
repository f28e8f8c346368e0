// Package metrics holds the Prometheus counters shared by publishers,
// subscribers and the replica table.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "posecast"

// Metrics is a set of collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	published     *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	received      *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	expired       *prometheus.CounterVec
	deleted       prometheus.Counter
	live          *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Messages published, by message kind",
		}, []string{"kind"}),
		publishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Messages that failed to encode or send, by message kind",
		}, []string{"kind"}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_total",
			Help:      "Messages received and decoded, by message kind",
		}, []string{"kind"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Datagrams dropped because they did not decode, by message kind",
		}, []string{"kind"}),
		expired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "expired_total",
			Help:      "Replica entries removed by a sweep, by entry kind",
		}, []string{"kind"}),
		deleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "deleted_total",
			Help:      "Objects removed by an explicit deletion",
		}),
		live: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replica",
			Name:      "live_entries",
			Help:      "Entries held after the last sweep, by entry kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) Published(kind string) {
	if m != nil {
		m.published.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PublishFailed(kind string) {
	if m != nil {
		m.publishErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Received(kind string) {
	if m != nil {
		m.received.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) DecodeFailed(kind string) {
	if m != nil {
		m.decodeErrors.WithLabelValues(kind).Inc()
	}
}

// Expired records n entries of kind removed by a sweep.
func (m *Metrics) Expired(kind string, n int) {
	if m != nil && n > 0 {
		m.expired.WithLabelValues(kind).Add(float64(n))
	}
}

func (m *Metrics) Deleted() {
	if m != nil {
		m.deleted.Inc()
	}
}

// Live sets the number of entries of kind currently held.
func (m *Metrics) Live(kind string, n int) {
	if m != nil {
		m.live.WithLabelValues(kind).Set(float64(n))
	}
}
