// Package api serves the ledger queries and the sync trigger over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server holds what the handlers need. Feed may be nil, in which case sync
// requests are refused.
type Server struct {
	ledger  *costbasis.Ledger
	feed    costbasis.Feed
	metrics *metrics.Registry
	log     zerolog.Logger
}

// NewServer creates a Server.
func NewServer(ledger *costbasis.Ledger, feed costbasis.Feed, reg *metrics.Registry, log zerolog.Logger) *Server {
	return &Server{ledger: ledger, feed: feed, metrics: reg, log: log}
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/transactions/update", s.handleSync)
	r.Get("/unrealized", s.handleUnrealized)
	r.Get("/realized", s.handleRealized)
	r.Get("/realized/broker/{broker}", s.handleRealized)
	r.Get("/realized/account/{account_id}", s.handleRealized)
	r.Get("/average_entry/{account_id}", s.handleAverageEntry)
	r.Route("/positions", func(r chi.Router) {
		r.Get("/active", s.handleActivePositions)
		r.Get("/closed", s.handleClosedPositions)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusOf maps the ledger error taxonomy to HTTP statuses.
func statusOf(err error) int {
	var (
		insufficient *costbasis.InsufficientLotsError
		invalid      *costbasis.ValidationError
	)
	switch {
	case errors.Is(err, costbasis.ErrSyncConflict):
		return http.StatusConflict
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
