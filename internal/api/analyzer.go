package api

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/edgecard/internal/drivers"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/repository"
)

// AnalysisResult is the payload delivered on the stream's complete message.
type AnalysisResult struct {
	GameID      string                `json:"game_id"`
	Sport       string                `json:"sport"`
	Direction   string                `json:"composite_direction"`
	Descriptors []*drivers.Descriptor `json:"descriptors"`
	ComputedAt  time.Time             `json:"computed_at"`
}

// DriverAnalyzer recomputes a game's driver set from its latest odds
// snapshot. It mirrors the fan-out computation but writes nothing.
type DriverAnalyzer struct {
	odds           repository.OddsRepository
	registry       *drivers.Registry
	snapshotWindow time.Duration
}

// NewDriverAnalyzer creates an on-demand analyzer over the driver registry
func NewDriverAnalyzer(odds repository.OddsRepository, registry *drivers.Registry, snapshotWindow time.Duration) *DriverAnalyzer {
	return &DriverAnalyzer{odds: odds, registry: registry, snapshotWindow: snapshotWindow}
}

// Analyze runs every registered driver for the game, reporting progress as
// each driver completes.
func (a *DriverAnalyzer) Analyze(ctx context.Context, game *models.Game, report ProgressFunc) (any, error) {
	driverSet := a.registry.ForSport(game.Sport)
	if len(driverSet) == 0 {
		return nil, fmt.Errorf("no driver set registered for sport %q", game.Sport)
	}

	report(10, "loading_snapshot")
	now := time.Now().UTC()
	snap, err := a.odds.GetLatestSince(ctx, game.GameID, now.Add(-a.snapshotWindow))
	if err != nil {
		return nil, fmt.Errorf("no recent odds snapshot for %s: %w", game.GameID, err)
	}

	var descriptors []*drivers.Descriptor
	for i, driver := range driverSet {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if desc := driver.Compute(game, snap); desc != nil {
			descriptors = append(descriptors, desc)
		}
		progress := 10 + (i+1)*80/len(driverSet)
		report(progress, "running_drivers")
	}

	report(95, "assembling_results")
	return &AnalysisResult{
		GameID:      game.GameID,
		Sport:       game.Sport,
		Direction:   drivers.CompositeDirection(descriptors),
		Descriptors: descriptors,
		ComputedAt:  now,
	}, nil
}
