package metrics

import (
	"testing"
)

func counterValue(t *testing.T, m *Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					if c := metric.GetCounter(); c != nil {
						return c.GetValue()
					}
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Published("pose")
	m.Published("pose")
	m.DecodeFailed("cloud")
	m.Expired("object", 3)
	m.Expired("object", 0)
	m.Live("cloud", 4)

	if got := counterValue(t, m, "posecast_published_total", "pose"); got != 2 {
		t.Errorf("published_total{pose}: got %v, want 2", got)
	}
	if got := counterValue(t, m, "posecast_decode_errors_total", "cloud"); got != 1 {
		t.Errorf("decode_errors_total{cloud}: got %v, want 1", got)
	}
	if got := counterValue(t, m, "posecast_replica_expired_total", "object"); got != 3 {
		t.Errorf("replica_expired_total{object}: got %v, want 3", got)
	}
	if got := counterValue(t, m, "posecast_replica_live_entries", "cloud"); got != 4 {
		t.Errorf("replica_live_entries{cloud}: got %v, want 4", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Published("pose")
	m.Received("pose")
	m.DecodeFailed("pose")
	m.PublishFailed("pose")
	m.Expired("object", 1)
	m.Deleted()
	m.Live("object", 1)

	if m.Registry() == nil {
		t.Fatal("expected an empty registry for nil metrics")
	}
}
