// Package hostload publishes this host's CPU and memory load as a cube on
// the pose group, so a monitor shows one bar per host.
package hostload

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"syscall"
	"time"

	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/sysinfo"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

const slots = 16

// objectID names the host's cube.
func objectID(hostname string) string {
	return "load/" + hostname
}

// slot spreads hosts along the x axis, 0.5m apart, by hostname hash.
func slot(hostname string) float64 {
	h := fnv.New32a()
	h.Write([]byte(hostname))
	return 0.5 * float64(h.Sum32()%slots)
}

// batch renders one load sample. The cube's height tracks CPU usage and is
// centred so it grows up from the floor. The timeout is three intervals so
// a single lost datagram does not make the bar flicker.
func batch(load *sysinfo.Load, interval time.Duration) *wire.PoseUpdate {
	height := load.CubeLength()
	u := wire.NewPoseUpdate()
	u.Add(objectID(load.Hostname), wire.Point3{slot(load.Hostname), 0, height / 2}).
		WithShape(wire.Cube{X: 0.2, Y: 0.2, Z: height}).
		WithColor(load.MemoryColor()).
		WithTimeout(3 * interval.Seconds())
	return u
}

// Run samples and publishes until interrupted, then deletes the cube.
func Run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	interval, err := cfg.Publisher.ParseHostloadInterval()
	if err != nil {
		return fmt.Errorf("parsing hostload interval: %w", err)
	}
	ep, err := multicast.ParseEndpoint(cfg.Multicast.Poses)
	if err != nil {
		return fmt.Errorf("parsing pose endpoint: %w", err)
	}
	pub, err := pubsub.NewPosePublisher(ep, log)
	if err != nil {
		return fmt.Errorf("binding pose publisher: %w", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostname, _ := os.Hostname()
	log.Info().
		Str("endpoint", ep.String()).
		Str("id", objectID(hostname)).
		Dur("interval", interval).
		Msg("Publishing host load")

	for {
		// cpu.Percent blocks for the whole window, so sampling paces the loop.
		load, err := sysinfo.Sample(interval)
		if err != nil {
			return fmt.Errorf("sampling load: %w", err)
		}
		if ctx.Err() != nil {
			break
		}
		if err := pub.Publish(batch(load, interval)); err != nil {
			log.Warn().Err(err).Msg("Failed to publish load")
		}
		log.Debug().
			Float64("cpu", load.CPUPercent).
			Float64("mem", load.MemPercent).
			Msg("Load published")
	}

	u := wire.NewPoseUpdate()
	u.Remove(objectID(hostname))
	if err := pub.Publish(u); err != nil {
		return fmt.Errorf("publishing deletion: %w", err)
	}
	log.Info().Msg("Host load publisher stopped")
	return nil
}
