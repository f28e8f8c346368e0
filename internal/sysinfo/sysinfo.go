// Package sysinfo samples host load for the hostload publisher.
package sysinfo

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"posecast/internal/wire"
)

// Load is one sample of host utilisation.
type Load struct {
	Hostname   string
	CPUCores   int
	CPUPercent float64
	MemPercent float64
	Uptime     time.Duration
}

// Sample measures CPU usage over window and reads current memory usage.
// A zero window compares against the previous call.
func Sample(window time.Duration) (*Load, error) {
	hostname, _ := os.Hostname()
	load := &Load{
		Hostname: hostname,
		CPUCores: runtime.NumCPU(),
	}

	percents, err := cpu.Percent(window, false)
	if err != nil {
		return nil, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(percents) > 0 {
		load.CPUPercent = clampPercent(percents[0])
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("sampling memory: %w", err)
	}
	load.MemPercent = clampPercent(vm.UsedPercent)

	// Uptime is informational only
	if secs, err := host.Uptime(); err == nil {
		load.Uptime = time.Duration(secs) * time.Second
	}

	return load, nil
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(100, p))
}

// CubeLength maps CPU usage onto a bar length between 0.05 and 1.
func (l *Load) CubeLength() float64 {
	return 0.05 + 0.95*l.CPUPercent/100
}

// MemoryColor maps memory pressure onto the palette: green below 50%,
// yellow below 80%, red above.
func (l *Load) MemoryColor() wire.Color {
	switch {
	case l.MemPercent < 50:
		return wire.Green
	case l.MemPercent < 80:
		return wire.Yellow
	default:
		return wire.Red
	}
}
