// Package monitor implements the headless viewer: it keeps a replica of
// every published object and cloud, prints the live table each tick and
// serves snapshots over RPC and HTTP.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"posecast/internal/metrics"
	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/replica"
	"posecast/internal/rpc"
	"posecast/internal/status"
	"posecast/internal/wire"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

const clearScreen = "\033[H\033[2J"

// viewer is the single owner of the replica table. Everything it touches
// runs on the goroutine that calls tick.
type viewer struct {
	table  *replica.Table
	scene  *scene
	holder *replica.SnapshotHolder

	poses    <-chan wire.PoseUpdate
	clouds   <-chan wire.PointCloud
	commands <-chan wire.Command

	out   io.Writer
	clear bool
	width int
	last  string
	log   zerolog.Logger
}

// tick folds every queued message into the table, expires stale entries,
// publishes a snapshot for other goroutines and redraws when the table
// text changed.
func (v *viewer) tick(now time.Time) {
	pubsub.Drain(v.poses, v.table.ApplyUpdate)
	pubsub.Drain(v.clouds, v.table.ApplyCloud)
	pubsub.Drain(v.commands, func(c wire.Command) {
		v.log.Info().
			Uint32("id", c.ID).
			Floats64("point", c.Point[:]).
			Float64("angle", c.Angle).
			Float64("length", c.Length).
			Msg("Command received")
	})

	if n := v.table.Sweep(now); n > 0 {
		v.log.Debug().Int("expired", n).Msg("Swept stale entries")
	}
	v.holder.Store(v.table.Snapshot())
	v.render()
}

func (v *viewer) render() {
	text := v.table.Summary()
	if text == v.last {
		return
	}
	v.last = text

	var b strings.Builder
	if v.clear {
		b.WriteString(clearScreen)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		b.WriteString(fit(line, v.width))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "-- %d nodes attached --\n", v.scene.Len())
	io.WriteString(v.out, b.String())
}

// fit truncates line to width runes; zero width means unlimited.
func fit(line string, width int) string {
	if width <= 0 {
		return line
	}
	r := []rune(line)
	if len(r) <= width {
		return line
	}
	return string(r[:width-1]) + "…"
}

// Run starts the monitor and blocks until interrupted.
func Run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	tick, err := cfg.Monitor.ParseTick()
	if err != nil {
		return fmt.Errorf("parsing tick: %w", err)
	}

	posesEP, err := multicast.ParseEndpoint(cfg.Multicast.Poses)
	if err != nil {
		return fmt.Errorf("parsing pose endpoint: %w", err)
	}
	cloudsEP, err := multicast.ParseEndpoint(cfg.Multicast.Clouds)
	if err != nil {
		return fmt.Errorf("parsing cloud endpoint: %w", err)
	}
	commandsEP, err := multicast.ParseEndpoint(cfg.Multicast.Commands)
	if err != nil {
		return fmt.Errorf("parsing command endpoint: %w", err)
	}

	// Ensure RPC socket directory exists
	sockDir := filepath.Dir(cfg.Monitor.RPCSocket)
	if err := os.MkdirAll(sockDir, 0700); err != nil {
		return fmt.Errorf("creating socket directory %s: %w", sockDir, err)
	}

	holder := &replica.SnapshotHolder{}

	srv, err := rpc.StartServer(cfg.Monitor.RPCSocket, holder, log)
	if err != nil {
		return fmt.Errorf("starting RPC server: %w", err)
	}
	defer srv.Close()

	m := metrics.New()
	poseSub, err := pubsub.NewPoseSubscriber(posesEP, log, pubsub.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("binding pose subscriber: %w", err)
	}
	cloudSub, err := pubsub.NewCloudSubscriber(cloudsEP, log, pubsub.WithMetrics(m))
	if err != nil {
		poseSub.Close()
		return fmt.Errorf("binding cloud subscriber: %w", err)
	}
	commandSub, err := pubsub.NewCommandSubscriber(commandsEP, log, pubsub.WithMetrics(m))
	if err != nil {
		poseSub.Close()
		cloudSub.Close()
		return fmt.Errorf("binding command subscriber: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := newScene(log)
	v := &viewer{
		table: replica.New(
			replica.WithBinder(sc),
			replica.WithMetrics(m),
			replica.WithLogger(log),
		),
		scene:  sc,
		holder: holder,
		out:    os.Stdout,
		log:    log,
	}

	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		v.clear = cfg.Monitor.ClearScreen
		if w, _, err := term.GetSize(fd); err == nil {
			v.width = w
		}
	}

	errCh := make(chan error, 4)
	if cfg.Monitor.StatusAddr != "" {
		st := status.New(cfg.Monitor.StatusAddr, holder, m, log)
		go func() {
			if err := st.Run(ctx); err != nil {
				errCh <- fmt.Errorf("status server: %w", err)
			}
		}()
	}

	poses := make(chan wire.PoseUpdate, 256)
	clouds := make(chan wire.PointCloud, 16)
	commands := make(chan wire.Command, 64)
	v.poses, v.clouds, v.commands = poses, clouds, commands

	go func() { errCh <- pump(ctx, poseSub, poses, log) }()
	go func() { errCh <- pump(ctx, cloudSub, clouds, log) }()
	go func() { errCh <- pump(ctx, commandSub, commands, log) }()

	log.Info().
		Str("poses", posesEP.String()).
		Str("clouds", cloudsEP.String()).
		Str("commands", commandsEP.String()).
		Dur("tick", tick).
		Msg("Monitor started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			v.tick(now)
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			log.Info().Msg("Shutting down")
			return nil
		}
	}
}

func pump[T any](ctx context.Context, sub *pubsub.Subscriber[T], out chan<- T, log zerolog.Logger) error {
	defer sub.Close()
	if err := pubsub.Pump(ctx, sub, out, log); err != nil {
		return fmt.Errorf("%s subscriber: %w", sub.Kind(), err)
	}
	return nil
}
