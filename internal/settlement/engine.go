package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
	"github.com/yourusername/edgecard/internal/resultsapi"
)

// ResultsSource is the external scoreboard surface the engine consumes
type ResultsSource interface {
	Scoreboard(ctx context.Context, sport string, date time.Time) ([]resultsapi.ScoreboardGame, error)
}

// GameResultsOutcome summarizes one settle_game_results pass
type GameResultsOutcome struct {
	GamesChecked int `json:"games_checked"`
	GamesSettled int `json:"games_settled"`
}

// CardsOutcome summarizes one settle_pending_cards pass
type CardsOutcome struct {
	CardsSettled int `json:"cards_settled"`
	Skipped      int `json:"skipped"`
	Voided       int `json:"voided"`
}

// trackingKey identifies one TrackingStat row touched by a pass
type trackingKey struct {
	sport        string
	cardCategory string
	betType      string
}

// Engine settles game results and pending cards
type Engine struct {
	games   repository.GameRepository
	cards   repository.CardRepository
	results repository.ResultRepository
	source  ResultsSource
	cfg     config.SettlementConfig
	loc     *time.Location
	log     *logger.PipelineLogger
}

// NewEngine creates a settlement engine
func NewEngine(games repository.GameRepository, cards repository.CardRepository, results repository.ResultRepository, source ResultsSource, cfg config.SettlementConfig, loc *time.Location, log *logger.PipelineLogger) *Engine {
	return &Engine{
		games:   games,
		cards:   cards,
		results: results,
		source:  source,
		cfg:     cfg,
		loc:     loc,
		log:     log,
	}
}

// SettleGameResults looks up final scores for started games without a
// final GameResult yet. Games finish at different rates; a game the source
// has not completed stays pending for the next pass. Idempotent: games
// already final are not re-fetched, so a re-run settles zero.
func (e *Engine) SettleGameResults(ctx context.Context, now time.Time) (*GameResultsOutcome, error) {
	lookback := time.Duration(e.cfg.LookbackHours) * time.Hour
	pending, err := e.games.GetPendingResults(ctx, lookback, now)
	if err != nil {
		return nil, fmt.Errorf("load games pending results: %w", err)
	}

	delay := time.Duration(e.cfg.PostGameDelayMin) * time.Minute
	outcome := &GameResultsOutcome{}

	for _, game := range pending {
		if now.Before(game.GameTimeUTC.Add(delay)) {
			continue
		}
		outcome.GamesChecked++

		board, err := e.source.Scoreboard(ctx, game.Sport, game.GameTimeUTC.In(e.loc))
		if err != nil {
			e.log.WithError(err).WithField("sport", game.Sport).Warn("Results source unavailable")
			continue
		}

		match := resultsapi.FindGame(board, game.HomeTeam, game.AwayTeam)
		if match == nil || !match.Completed {
			continue
		}

		result := &models.GameResult{
			GameID:         game.GameID,
			FinalScoreHome: match.HomeScore,
			FinalScoreAway: match.AwayScore,
			Status:         models.GameResultFinal,
			ResultSource:   "scoreboard",
			SettledAt:      now.UTC(),
		}
		if err := e.results.UpsertGameResult(ctx, result); err != nil {
			return outcome, fmt.Errorf("upsert result for %s: %w", game.GameID, err)
		}
		if err := e.games.UpdateStatus(ctx, game.GameID, models.GameStatusFinal); err != nil {
			return outcome, fmt.Errorf("finalize game %s: %w", game.GameID, err)
		}
		outcome.GamesSettled++
	}

	return outcome, nil
}

// SettlePendingCards grades every pending card result whose game is final.
// PASS and NEUTRAL cards are skipped (later voided by the sweep). The
// pending-status gate in the store makes double settlement impossible; a
// second run settles zero. Touched tracking keys are recomputed after the
// pass.
func (e *Engine) SettlePendingCards(ctx context.Context, now time.Time) (*CardsOutcome, error) {
	settleable, err := e.cards.GetSettleable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settleable cards: %w", err)
	}

	outcome := &CardsOutcome{}
	touched := make(map[trackingKey]struct{})

	for _, sc := range settleable {
		pd, err := sc.Card.ParsePayload()
		if err != nil {
			e.log.WithError(err).WithField("card_id", sc.Card.ID).Warn("Unreadable card payload; skipping")
			outcome.Skipped++
			continue
		}

		play, ok := ExtractActualPlay(pd)
		if !ok {
			outcome.Skipped++
			continue
		}

		odds, ok := PickBetOdds(&pd.OddsContext, play)
		if !ok {
			e.log.WithField("card_id", sc.Card.ID).Warn("No gradable price in odds context; skipping")
			outcome.Skipped++
			continue
		}

		result, ok := Grade(&pd.OddsContext, play, sc.GameResult.FinalScoreHome, sc.GameResult.FinalScoreAway)
		if !ok {
			e.log.WithField("card_id", sc.Card.ID).Warn("Missing line for market; skipping")
			outcome.Skipped++
			continue
		}

		pnl := PnLUnits(result, odds)
		settled, err := e.results.MarkCardResult(ctx, sc.Card.ID, result, pnl, now.UTC())
		if err != nil {
			return outcome, fmt.Errorf("mark card %s: %w", sc.Card.ID, err)
		}
		if !settled {
			continue
		}

		outcome.CardsSettled++
		metrics.RecordCardSettled(result)
		touched[trackingKey{
			sport:        sc.Card.Sport,
			cardCategory: sc.Card.CardCategory,
			betType:      play.Market,
		}] = struct{}{}
	}

	for key := range touched {
		if _, err := e.results.RecomputeTrackingStat(ctx, key.sport, key.cardCategory, key.betType, now); err != nil {
			return outcome, fmt.Errorf("recompute tracking stat %v: %w", key, err)
		}
	}

	e.log.LogSettlement(0, outcome.CardsSettled, outcome.Skipped)
	return outcome, nil
}

// VoidSweep voids pending results whose game has been final longer than
// the configured grace period. Catches PASS and NEUTRAL cards that never
// became plays.
func (e *Engine) VoidSweep(ctx context.Context, now time.Time) (int, error) {
	grace := time.Duration(e.cfg.VoidAfterHours) * time.Hour
	voided, err := e.results.VoidStalePending(ctx, grace, now)
	if err != nil {
		return 0, fmt.Errorf("void stale pending results: %w", err)
	}
	if voided > 0 {
		metrics.RecordCardsVoided(voided)
		e.log.WithField("voided", voided).Info("Stale pending card results voided")
	}
	return voided, nil
}
