package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// HTTPServer exposes the dashboard sessions over HTTP.
type HTTPServer struct {
	cfg      config.APIConfig
	sessions *service.SessionManager
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, sessions *service.SessionManager, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:      cfg,
		sessions: sessions,
		auth:     NewHTTPAuth(cfg),
		logger:   logger,
		now:      time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return srv
}

// Handler returns the routed handler with auth and logging applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reload", s.handleReload)
	mux.HandleFunc("POST /api/v1/sessions/{id}/requests/{kind}/{requestID}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/v1/sessions/{id}/requests/{kind}/{requestID}/reject", s.handleReject)
	mux.HandleFunc("POST /api/v1/sessions/{id}/navigate", s.handleNavigate)
	mux.HandleFunc("GET /api/v1/sessions/{id}/labs/{labID}/bookings-export", s.handleExport)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleCloseSession)

	return s.loggingMiddleware(s.auth.Wrap(mux))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
