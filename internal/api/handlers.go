package api

import (
	"context"
	"net/http"
	"time"

	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
)

const healthCheckTimeout = 3 * time.Second

// Dedupe modes accepted by /api/cards
const (
	dedupeLatest = "latest_per_game_type"
	dedupeNone   = "none"
)

type gamesResponse struct {
	Games []*models.Game `json:"games"`
	Count int            `json:"count"`
}

type cardsResponse struct {
	Cards []*models.CardPayload `json:"cards"`
	Count int                   `json:"count"`
}

type resultsResponse struct {
	Ledger   []*repository.LedgerRow `json:"ledger"`
	Segments []*models.TrackingStat  `json:"segments"`
	Count    int                     `json:"count"`
}

type healthResponse struct {
	Status         string               `json:"status"`
	Timestamp      string               `json:"timestamp"`
	Checks         map[string]string    `json:"checks"`
	LastSuccessful map[string]time.Time `json:"last_successful_runs,omitempty"`
}

// handleGames returns games from the start of "today" in the configured
// timezone onward. The boundary is computed here and passed into the query
// so the comparison stays deterministic.
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	now := s.nowFn().In(s.loc)
	boundary := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	games, err := s.games.GetFromBoundary(r.Context(), boundary)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load games")
		s.writeError(w, http.StatusInternalServerError, "query_failed", "failed to load games")
		return
	}

	s.writeJSON(w, http.StatusOK, gamesResponse{Games: games, Count: len(games)})
}

// handleCards returns cards, by default deduped to the latest per
// (game_id, card_type). game_id is an optional filter; without it the
// query spans all games.
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")

	var cards []*models.CardPayload
	var err error
	switch dedupe := r.URL.Query().Get("dedupe"); dedupe {
	case "", dedupeLatest:
		cards, err = s.cards.GetLatestPerGameType(r.Context(), gameID, s.nowFn().UTC())
	case dedupeNone:
		cards, err = s.cards.GetAllCards(r.Context(), gameID)
	default:
		s.writeError(w, http.StatusBadRequest, "invalid_dedupe", "dedupe must be latest_per_game_type or none")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("game_id", gameID).Error("Failed to load cards")
		s.writeError(w, http.StatusInternalServerError, "query_failed", "failed to load cards")
		return
	}

	s.writeJSON(w, http.StatusOK, cardsResponse{Cards: cards, Count: len(cards)})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	market := query.Get("market")
	switch market {
	case "", models.MarketMoneyline, models.MarketSpread, models.MarketTotal:
	default:
		s.writeError(w, http.StatusBadRequest, "invalid_market", "market must be moneyline, spread or total")
		return
	}

	filter := repository.LedgerFilter{
		Sport:        query.Get("sport"),
		Market:       market,
		CardCategory: query.Get("card_category"),
	}

	ledger, err := s.results.GetLedger(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load play ledger")
		s.writeError(w, http.StatusInternalServerError, "query_failed", "failed to load results")
		return
	}

	segments, err := s.results.GetSegments(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load tracking segments")
		s.writeError(w, http.StatusInternalServerError, "query_failed", "failed to load results")
		return
	}

	s.writeJSON(w, http.StatusOK, resultsResponse{Ledger: ledger, Segments: segments, Count: len(ledger)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: s.nowFn().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"database": "ok"},
	}
	status := http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checks["database"] = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	} else if lastRuns, err := s.jobRuns.LastSuccessPerJob(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to load last successful runs")
		resp.Checks["job_runs"] = "error: " + err.Error()
	} else {
		resp.LastSuccessful = lastRuns
	}

	s.writeJSON(w, status, resp)
}
