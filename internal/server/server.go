// Package server exposes the upload gate over HTTP for platform hooks and
// CI integrations.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"fedgate/internal/gate"
	"fedgate/internal/scope"
)

// Checker evaluates one upload event. *gate.Gate satisfies it.
type Checker interface {
	Check(ctx context.Context, event scope.UploadEvent) gate.Response
}

type Server struct {
	checker Checker
	timeout time.Duration
	log     *zap.Logger
}

func New(checker Checker, timeout time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{checker: checker, timeout: timeout, log: log}
}

// Handler returns the HTTP routes:
//
//	POST /api/v1/gate  — body {"repo_key": "...", "path": "..."}, responds
//	                     with the gate Response. Always 200 when the gate
//	                     resolved; the decision is in the body.
//	GET  /healthz      — liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/gate", s.handleGate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	var event scope.UploadEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "invalid request body: expected {\"repo_key\": ..., \"path\": ...}", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp := s.checker.Check(ctx, event)
	s.log.Info("gate request",
		zap.String("repo", event.RepoKey),
		zap.String("path", event.Path),
		zap.String("status", string(resp.Status)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("failed to write gate response", zap.Error(err))
	}
}

// ListenAndServe blocks serving the gate until the context is canceled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("gate server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
