// Package record captures multicast traffic into recorder sessions and
// plays them back.
package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"posecast/internal/multicast"
	"posecast/internal/pubsub"
	"posecast/internal/recorder"
	"posecast/pkg/config"
	"posecast/pkg/logger"
)

// endpoints resolves the configured group for each requested kind.
func endpoints(cfg *config.Config, kinds []string) (map[string]netip.AddrPort, error) {
	byKind := map[string]string{
		pubsub.KindPose:    cfg.Multicast.Poses,
		pubsub.KindCloud:   cfg.Multicast.Clouds,
		pubsub.KindCommand: cfg.Multicast.Commands,
	}
	out := make(map[string]netip.AddrPort, len(kinds))
	for _, kind := range kinds {
		s, ok := byKind[kind]
		if !ok {
			return nil, fmt.Errorf("unknown kind %q (want pose, cloud or command)", kind)
		}
		ep, err := multicast.ParseEndpoint(s)
		if err != nil {
			return nil, fmt.Errorf("parsing %s endpoint: %w", kind, err)
		}
		out[kind] = ep
	}
	return out, nil
}

func openStore(cfg *config.Config, log zerolog.Logger) (*recorder.Store, error) {
	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Recorder.DBPath)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dbDir, err)
	}
	db, err := recorder.Open(cfg.Recorder.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening recorder: %w", err)
	}
	return db, nil
}

func setup(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}
	return cfg, logger.Init(cfg.Log.Level, cfg.Log.Format), nil
}

// Record captures the groups for kinds into a new session until
// interrupted.
func Record(configPath string, kinds []string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	eps, err := endpoints(cfg, kinds)
	if err != nil {
		return err
	}
	retention, err := cfg.Recorder.ParseRetention()
	if err != nil {
		return fmt.Errorf("parsing retention: %w", err)
	}

	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	pruneStop := make(chan struct{})
	defer close(pruneStop)
	db.RunPrune(time.Hour, retention, pruneStop)

	conns := make(map[string]*multicast.Conn, len(eps))
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	groups := make(map[string]string, len(eps))
	for kind, ep := range eps {
		conn, err := multicast.Bind(ep, log)
		if err != nil {
			return fmt.Errorf("binding %s group: %w", kind, err)
		}
		conns[kind] = conn
		groups[kind] = ep.String()
	}

	sess, err := db.NewSession(time.Now(), groups)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, len(conns))
	for kind, conn := range conns {
		wg.Add(1)
		go func(kind string, conn *multicast.Conn) {
			defer wg.Done()
			if err := recorder.Capture(ctx, db, sess, kind, conn); err != nil {
				errCh <- err
				stop()
			}
		}(kind, conn)
	}

	fmt.Printf("Recording session %s (Ctrl-C to stop)\n", sess.ID)
	wg.Wait()
	close(errCh)

	final, err := db.Session(sess.ID)
	if err == nil {
		log.Info().
			Str("session", final.ID).
			Uint64("frames", final.Frames).
			Dur("duration", final.Duration()).
			Msg("Recording stopped")
	}
	return <-errCh
}

// Replay retransmits a session's frames to the groups configured now, at
// speed times the original pace.
func Replay(configPath, sessionID string, speed float64) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	sess, err := db.Session(sessionID)
	if err != nil {
		return err
	}
	frames, err := db.Frames(sessionID)
	if err != nil {
		return fmt.Errorf("reading frames: %w", err)
	}

	kinds := make([]string, 0, len(sess.Groups))
	for kind := range sess.Groups {
		kinds = append(kinds, kind)
	}
	eps, err := endpoints(cfg, kinds)
	if err != nil {
		return err
	}

	conns := make(map[string]*multicast.Conn, len(eps))
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for kind, ep := range eps {
		conn, err := multicast.Bind(ep, log)
		if err != nil {
			return fmt.Errorf("binding %s group: %w", kind, err)
		}
		conns[kind] = conn
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("session", sess.ID).
		Int("frames", len(frames)).
		Float64("speed", speed).
		Msg("Replaying session")

	err = recorder.Replay(ctx, frames, speed, func(f recorder.Frame) error {
		conn, ok := conns[f.Kind]
		if !ok {
			log.Debug().Str("kind", f.Kind).Msg("Skipping frame for unbound kind")
			return nil
		}
		return conn.Write(f.Payload)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// List prints every recorded session.
func List(configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.Sessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No recorded sessions.")
		return nil
	}
	displaySessionTable(os.Stdout, sessions)
	return nil
}

// Delete removes one recorded session.
func Delete(configPath, sessionID string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Delete(sessionID)
}

func displaySessionTable(w io.Writer, sessions []recorder.Session) {
	fmt.Fprintf(w, "  %-36s %-19s %-10s %-8s %s\n",
		"Session", "Started", "Duration", "Frames", "Groups")
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		strings.Repeat("─", 36),
		strings.Repeat("─", 19),
		strings.Repeat("─", 10),
		strings.Repeat("─", 8),
		strings.Repeat("─", 20))

	for _, s := range sessions {
		kinds := make([]string, 0, len(s.Groups))
		for _, kind := range []string{pubsub.KindPose, pubsub.KindCloud, pubsub.KindCommand} {
			if _, ok := s.Groups[kind]; ok {
				kinds = append(kinds, kind)
			}
		}
		fmt.Fprintf(w, "  %-36s %-19s %-10s %-8d %s\n",
			s.ID,
			s.Started.Local().Format("2006-01-02 15:04:05"),
			s.Duration().Truncate(time.Second),
			s.Frames,
			strings.Join(kinds, ","),
		)
	}
}
