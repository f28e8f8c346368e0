package sysinfo

import (
	"math"
	"testing"

	"posecast/internal/wire"
)

func TestSample(t *testing.T) {
	load, err := Sample(0)
	if err != nil {
		t.Skipf("load sampling unsupported here: %v", err)
	}

	if load.Hostname == "" {
		t.Error("Hostname is empty")
	}
	if load.CPUCores <= 0 {
		t.Errorf("CPUCores: got %d", load.CPUCores)
	}
	if load.CPUPercent < 0 || load.CPUPercent > 100 {
		t.Errorf("CPUPercent out of range: %v", load.CPUPercent)
	}
	if load.MemPercent < 0 || load.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %v", load.MemPercent)
	}

	t.Logf("Sampled: host=%s cpu=%.1f%% mem=%.1f%%", load.Hostname, load.CPUPercent, load.MemPercent)
}

func TestClampPercent(t *testing.T) {
	tests := map[float64]float64{
		-3:         0,
		42:         42,
		140:        100,
		math.NaN(): 0,
	}
	for in, want := range tests {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestLoad_CubeLength(t *testing.T) {
	if got := (&Load{CPUPercent: 0}).CubeLength(); got != 0.05 {
		t.Errorf("idle length: got %v, want 0.05", got)
	}
	if got := (&Load{CPUPercent: 100}).CubeLength(); math.Abs(got-1) > 1e-12 {
		t.Errorf("busy length: got %v, want 1", got)
	}
}

func TestLoad_MemoryColor(t *testing.T) {
	tests := []struct {
		mem  float64
		want wire.Color
	}{
		{10, wire.Green},
		{50, wire.Yellow},
		{79.9, wire.Yellow},
		{80, wire.Red},
	}
	for _, tt := range tests {
		if got := (&Load{MemPercent: tt.mem}).MemoryColor(); got != tt.want {
			t.Errorf("MemoryColor(%v) = %v, want %v", tt.mem, got, tt.want)
		}
	}
}
