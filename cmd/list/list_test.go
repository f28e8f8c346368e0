package list

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"posecast/internal/rpc"
)

func TestDisplayObjectTable(t *testing.T) {
	var buf bytes.Buffer
	displayObjectTable(&buf, []rpc.ObjectInfo{{
		ID:       "robot",
		Position: [3]float64{1, 2, 3},
		Shape:    "Cube(1, 1, 1)",
		Color:    "Blue",
		Age:      1200 * time.Millisecond,
		Timeout:  5 * time.Second,
	}})

	out := buf.String()
	for _, want := range []string{"robot", "1.00, 2.00, 3.00", "Cube(1, 1, 1)", "Blue", "3.8s"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayCloudTable(t *testing.T) {
	var buf bytes.Buffer
	displayCloudTable(&buf, []rpc.CloudInfo{{ID: "scan", Points: 2000, Color: "Cyan", Timeout: 5 * time.Second}})

	out := buf.String()
	if !strings.Contains(out, "scan") || !strings.Contains(out, "2000") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if !strings.Contains(out, " - ") {
		t.Errorf("missing parent placeholder:\n%s", out)
	}
}

func TestRemaining(t *testing.T) {
	if got := remaining(time.Second, 2*time.Second); got != "0s" {
		t.Errorf("overdue: got %s, want 0s", got)
	}
	if got := remaining(5*time.Second, 1250*time.Millisecond); got != "3.7s" {
		t.Errorf("got %s, want 3.7s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a-very-long-object-identifier", 10); got != "a-very-lo…" {
		t.Errorf("got %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
}
