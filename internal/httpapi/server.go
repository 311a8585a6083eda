package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/kmmndr/motion_watch/internal/metrics"
)

// NewRouter serves the status endpoints. hub may be nil to disable the
// websocket feed.
func NewRouter(tracker *Tracker, hub *Hub, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", m.WrapHandler("/metrics", m.Handler())).Methods(http.MethodGet)
	r.Handle("/healthz", m.WrapHandler("/healthz", http.HandlerFunc(healthHandler))).Methods(http.MethodGet)
	r.Handle("/status", m.WrapHandler("/status", statusHandler(tracker))).Methods(http.MethodGet)
	r.Handle("/activations", m.WrapHandler("/activations", activationsHandler(tracker))).Methods(http.MethodGet)
	if hub != nil {
		r.Handle("/events", hub).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusHandler(tracker *Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, tracker.Snapshot())
	})
}

func activationsHandler(tracker *Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, tracker.Recent(limit))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server runs the status endpoints next to the detection loop.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer compresses responses and turns handler panics into 500s.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(false),
	)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           recovery(handlers.CompressHandler(handler)),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Listen errors are logged, detection goes on.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", "addr", s.srv.Addr, "error", err)
		}
	}()
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
