package internal

import (
	"anon-chat/repositories"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// HTTPServer exposes the Prometheus metrics and a liveness probe. A read-only view of the
// audit log is mounted only when an audit repository is given. It runs as a supervised worker.
type HTTPServer struct {
	log      *slog.Logger
	port     int
	gatherer prometheus.Gatherer
	audit    repositories.IAuditRepository
}

func NewHTTPServer(log *slog.Logger, port int, gatherer prometheus.Gatherer,
	audit repositories.IAuditRepository) *HTTPServer {
	return &HTTPServer{log: log, port: port, gatherer: gatherer, audit: audit}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	})
	if s.audit != nil {
		mux.HandleFunc("/inspect/audit", s.inspectAudit)
	}
	return mux
}

func (s *HTTPServer) inspectAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.audit.List(limit)
	if err != nil {
		s.log.Warn("Unable to list audit entries", "error", err)
		http.Error(w, "audit log unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// Run serves until ctx is canceled, then shuts the listener down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
