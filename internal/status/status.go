// Package status serves the monitor's live replica and metrics over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"posecast/internal/metrics"
	"posecast/internal/replica"
)

// SnapshotSource yields the latest replica snapshot.
type SnapshotSource interface {
	Load() replica.Snapshot
}

// Server is the HTTP status endpoint.
type Server struct {
	addr    string
	source  SnapshotSource
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New returns a status server for addr. m may be nil, in which case
// /metrics is not mounted.
func New(addr string, source SnapshotSource, m *metrics.Metrics, log zerolog.Logger) *Server {
	return &Server{addr: addr, source: source, metrics: m, log: log}
}

// Routes builds the router:
//
//	GET /healthz
//	GET /metrics
//	GET /api/snapshot
//	GET /api/objects
//	GET /api/objects/{id}
//	GET /api/clouds
//	GET /api/clouds/{id}
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/objects", s.handleObjects)
		r.Get("/objects/{id}", s.handleObject)
		r.Get("/clouds", s.handleClouds)
		r.Get("/clouds/{id}", s.handleCloud)
	})
	return r
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Load())
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Load().Objects)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, obj := range s.source.Load().Objects {
		if obj.ID() == id {
			s.writeJSON(w, http.StatusOK, obj)
			return
		}
	}
	http.Error(w, "object not found", http.StatusNotFound)
}

func (s *Server) handleClouds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.source.Load().Clouds)
}

func (s *Server) handleCloud(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, c := range s.source.Load().Clouds {
		if c.Cloud.ID() == id {
			s.writeJSON(w, http.StatusOK, c)
			return
		}
	}
	http.Error(w, "cloud not found", http.StatusNotFound)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("Failed to write status response")
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Status server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("Status server shutdown error")
		return srv.Close()
	}
	return nil
}
