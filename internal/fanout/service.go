// Package fanout turns driver descriptors into stored cards. One job per
// sport; each run rewrites the active card per (game_id, card_type).
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/drivers"
	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
)

// cardExpiryLead is how long before puck drop a card stops being shown
const cardExpiryLead = time.Hour

// Result aggregates one fan-out pass for a sport
type Result struct {
	GamesProcessed int `json:"games_processed"`
	GamesSkipped   int `json:"games_skipped"`
	CardsWritten   int `json:"cards_written"`
	CardsFailed    int `json:"cards_failed"`
}

// Service computes driver sets per eligible game and writes cards
type Service struct {
	games          repository.GameRepository
	odds           repository.OddsRepository
	cards          repository.CardRepository
	registry       *drivers.Registry
	snapshotWindow time.Duration
	dryRun         bool
	log            *logger.PipelineLogger
}

// NewService creates a fan-out service. snapshotWindow bounds how stale a
// game's latest odds snapshot may be before the game is skipped.
func NewService(games repository.GameRepository, odds repository.OddsRepository, cards repository.CardRepository, registry *drivers.Registry, snapshotWindow time.Duration, dryRun bool, log *logger.PipelineLogger) *Service {
	return &Service{
		games:          games,
		odds:           odds,
		cards:          cards,
		registry:       registry,
		snapshotWindow: snapshotWindow,
		dryRun:         dryRun,
		log:            log,
	}
}

// RunSport executes one fan-out pass for a sport. Games without a recent
// snapshot or with every driver missing are skipped with a log entry; a
// card that fails validation aborts that card only, siblings proceed.
func (s *Service) RunSport(ctx context.Context, sport config.SportConfig, now time.Time) (*Result, error) {
	driverSet := s.registry.ForSport(sport.Key)
	if len(driverSet) == 0 {
		return nil, fmt.Errorf("no driver set registered for sport %q", sport.Key)
	}

	upcoming, err := s.games.GetUpcoming(ctx, sport.Key, time.Duration(sport.HoursAhead)*time.Hour, now)
	if err != nil {
		return nil, fmt.Errorf("load upcoming games: %w", err)
	}

	result := &Result{}
	for _, game := range upcoming {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.runGame(ctx, sport, game, driverSet, now, result)
	}

	return result, nil
}

func (s *Service) runGame(ctx context.Context, sport config.SportConfig, game *models.Game, driverSet []drivers.Driver, now time.Time, result *Result) {
	snap, err := s.odds.GetLatestSince(ctx, game.GameID, now.Add(-s.snapshotWindow))
	if err != nil {
		s.log.LogGameSkipped(sport.Key, game.GameID, "no_recent_snapshot")
		result.GamesSkipped++
		return
	}

	var descriptors []*drivers.Descriptor
	for _, driver := range driverSet {
		if desc := driver.Compute(game, snap); desc != nil {
			descriptors = append(descriptors, desc)
		}
	}

	if len(descriptors) == 0 {
		s.log.LogGameSkipped(sport.Key, game.GameID, "all_drivers_missing")
		result.GamesSkipped++
		return
	}

	result.GamesProcessed++
	if s.dryRun {
		return
	}

	expiresAt := game.GameTimeUTC.Add(-cardExpiryLead)
	for _, desc := range descriptors {
		if err := s.writeCard(ctx, sport, game, snap, desc, now, expiresAt); err != nil {
			if models.IsValidationError(err) {
				s.log.WithError(err).WithField("card_type", desc.CardType).Warn("Card failed validation")
			} else {
				s.log.WithError(err).WithField("card_type", desc.CardType).Error("Card write failed")
			}
			result.CardsFailed++
			continue
		}
		s.log.LogCardWritten(sport.Key, game.GameID, desc.CardType, desc.Prediction, desc.Confidence)
		metrics.RecordCardWritten(sport.Key, desc.CardType)
		result.CardsWritten++
	}
}

// writeCard rewrites the (game_id, card_type) pair: prior model outputs and
// still-pending cards are cleared, then the model output and card with its
// pending result row are inserted.
func (s *Service) writeCard(ctx context.Context, sport config.SportConfig, game *models.Game, snap *models.OddsSnapshot, desc *drivers.Descriptor, now, expiresAt time.Time) error {
	payload, err := buildPayload(snap, desc)
	if err != nil {
		return err
	}

	if err := s.cards.PrepareModelAndCardWrite(ctx, game.GameID, sport.ModelVersion, desc.CardType); err != nil {
		return fmt.Errorf("prepare card write: %w", err)
	}

	outputRaw, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode driver output: %w", err)
	}
	output := &models.ModelOutput{
		GameID:       game.GameID,
		Sport:        sport.Key,
		ModelVersion: sport.ModelVersion,
		CardType:     desc.CardType,
		SnapshotID:   snap.ID,
		Output:       outputRaw,
	}
	if err := s.cards.InsertModelOutput(ctx, output); err != nil {
		return fmt.Errorf("insert model output: %w", err)
	}

	card := &models.CardPayload{
		GameID:         game.GameID,
		Sport:          sport.Key,
		CardType:       desc.CardType,
		CardCategory:   models.CardCategoryDriver,
		CardTitle:      desc.CardTitle,
		CreatedAt:      now.UTC(),
		ExpiresAt:      &expiresAt,
		PayloadData:    payload,
		ModelOutputIDs: []uuid.UUID{output.ID},
	}
	return s.cards.InsertCardPayload(ctx, card)
}

func buildPayload(snap *models.OddsSnapshot, desc *drivers.Descriptor) (json.RawMessage, error) {
	recType := drivers.RecommendationFor(desc)
	pd := models.PayloadData{
		Prediction: desc.Prediction,
		Confidence: desc.Confidence,
		Reasoning:  desc.Reasoning,
		OddsContext: models.OddsContext{
			H2HHome:        snap.MoneylineHome,
			H2HAway:        snap.MoneylineAway,
			Total:          snap.Total,
			SpreadHome:     snap.SpreadHome,
			SpreadHomeOdds: snap.SpreadHomeOdds,
			SpreadAwayOdds: snap.SpreadAwayOdds,
		},
		Driver: &models.DriverInfo{
			Key:               desc.Key,
			Score:             desc.Score,
			EVThresholdPassed: desc.EVThresholdPassed,
			Inputs:            desc.Inputs,
			Status:            desc.Status,
		},
		Recommendation:     &models.Recommendation{Type: recType},
		RecommendedBetType: desc.Market,
		Meta: models.CardMeta{
			InferenceSource: "drivers",
			IsMock:          false,
		},
	}

	raw, err := json.Marshal(&pd)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}
