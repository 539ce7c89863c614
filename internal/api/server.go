// Package api exposes the read surface over the pipeline's tables: games,
// cards, the play ledger and health, plus the analysis progress stream.
// The API never writes; every mutation happens in the scheduled jobs.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/repository"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the collaborators the server reads from.
type Deps struct {
	Games    repository.GameRepository
	Cards    repository.CardRepository
	Results  repository.ResultRepository
	JobRuns  repository.JobRunRepository
	DB       DatabasePinger
	Analyzer Analyzer
	Logger   *logrus.Logger
}

// Server serves the read API.
type Server struct {
	cfg      config.APIConfig
	loc      *time.Location
	games    repository.GameRepository
	cards    repository.CardRepository
	results  repository.ResultRepository
	jobRuns  repository.JobRunRepository
	db       DatabasePinger
	analyzer Analyzer
	logger   *logrus.Logger
	server   *http.Server

	// nowFn is swapped in tests to pin the today boundary
	nowFn func() time.Time
}

// NewServer creates the read API server in the given timezone. The location
// fixes where "today" starts for the games boundary.
func NewServer(cfg config.APIConfig, loc *time.Location, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		loc:      loc,
		games:    deps.Games,
		cards:    deps.Cards,
		results:  deps.Results,
		jobRuns:  deps.JobRuns,
		db:       deps.DB,
		analyzer: deps.Analyzer,
		logger:   deps.Logger,
		nowFn:    time.Now,
	}
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.instrument("/api/games", s.handleGames))
	mux.HandleFunc("GET /api/cards", s.instrument("/api/cards", s.handleCards))
	mux.HandleFunc("GET /api/results", s.instrument("/api/results", s.handleResults))
	mux.HandleFunc("GET /api/health", s.instrument("/api/health", s.handleHealth))
	mux.HandleFunc("GET /api/analyze/{id}/stream", s.handleAnalyzeStream)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Start starts the read API server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.cfg.Port).Info("Read API server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Read API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the read API server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Read API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutS)*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		metrics.ObserveRequestDuration(route, time.Since(start).Seconds())
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode API response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, apiError{Error: code, Message: message})
}
