// Package list prints the live objects and clouds held by a running monitor.
package list

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"posecast/internal/rpc"
	"posecast/pkg/config"
)

// Run queries the monitor over its RPC socket and prints both tables.
func Run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := rpc.NewClient(cfg.Monitor.RPCSocket)
	if err != nil {
		return fmt.Errorf("connecting to monitor: %w\nIs 'posecast monitor' running?", err)
	}
	defer client.Close()

	objects, err := client.ListObjects()
	if err != nil {
		return fmt.Errorf("fetching objects: %w", err)
	}
	clouds, err := client.ListClouds()
	if err != nil {
		return fmt.Errorf("fetching clouds: %w", err)
	}

	if len(objects) == 0 && len(clouds) == 0 {
		fmt.Println("No live objects. Make sure publishers are running.")
		return nil
	}

	fmt.Printf("\n  Live Objects (%d)\n\n", len(objects))
	displayObjectTable(os.Stdout, objects)
	fmt.Printf("\n  Live Clouds (%d)\n\n", len(clouds))
	displayCloudTable(os.Stdout, clouds)
	fmt.Println()
	return nil
}

func displayObjectTable(w io.Writer, objects []rpc.ObjectInfo) {
	fmt.Fprintf(w, "  %-20s %-26s %-22s %-8s %-8s\n",
		"ID", "Position", "Shape", "Color", "TTL")
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		strings.Repeat("─", 20),
		strings.Repeat("─", 26),
		strings.Repeat("─", 22),
		strings.Repeat("─", 8),
		strings.Repeat("─", 8))

	for _, o := range objects {
		pos := fmt.Sprintf("%.2f, %.2f, %.2f", o.Position[0], o.Position[1], o.Position[2])
		fmt.Fprintf(w, "  %-20s %-26s %-22s %-8s %-8s\n",
			truncate(o.ID, 20),
			pos,
			truncate(o.Shape, 22),
			o.Color,
			remaining(o.Timeout, o.Age),
		)
	}
}

func displayCloudTable(w io.Writer, clouds []rpc.CloudInfo) {
	fmt.Fprintf(w, "  %-20s %-20s %-8s %-8s %-8s\n",
		"ID", "Parent", "Points", "Color", "TTL")
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		strings.Repeat("─", 20),
		strings.Repeat("─", 20),
		strings.Repeat("─", 8),
		strings.Repeat("─", 8),
		strings.Repeat("─", 8))

	for _, c := range clouds {
		parent := c.ParentFrame
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(w, "  %-20s %-20s %-8d %-8s %-8s\n",
			truncate(c.ID, 20),
			truncate(parent, 20),
			c.Points,
			c.Color,
			remaining(c.Timeout, c.Age),
		)
	}
}

// remaining formats how long an entry has left before it expires.
func remaining(timeout, age time.Duration) string {
	left := timeout - age
	if left < 0 {
		left = 0
	}
	return left.Truncate(100 * time.Millisecond).String()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
