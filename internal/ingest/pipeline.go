package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/metrics"
	"github.com/yourusername/edgecard/internal/models"
	"github.com/yourusername/edgecard/internal/oddsapi"
	"github.com/yourusername/edgecard/internal/repository"
)

// normalizedFloor is the contract guard threshold: if fewer than this
// fraction of raw provider games survive normalization, the provider's
// shape has likely changed and the sport's writes are aborted.
const normalizedFloor = 0.6

// OddsFetcher is the provider surface the pipeline consumes
type OddsFetcher interface {
	FetchUpcoming(ctx context.Context, sport config.SportConfig, hoursAhead int) (*oddsapi.FetchResult, error)
}

// Result aggregates one ingest pass across all active sports
type Result struct {
	GamesUpserted        int               `json:"games_upserted"`
	SnapshotsInserted    int               `json:"snapshots_inserted"`
	SkippedMissingFields int               `json:"skipped_missing_fields"`
	SportErrors          map[string]string `json:"sport_errors,omitempty"`
	ContractViolations   []string          `json:"contract_violations,omitempty"`
}

// Pipeline pulls odds for every active sport and persists games plus
// snapshots. It never writes model outputs or cards.
type Pipeline struct {
	fetcher OddsFetcher
	games   repository.GameRepository
	odds    repository.OddsRepository
	sports  []config.SportConfig
	dryRun  bool
	log     *logger.PipelineLogger
}

// NewPipeline creates an ingest pipeline over the active sports
func NewPipeline(fetcher OddsFetcher, games repository.GameRepository, odds repository.OddsRepository, sports []config.SportConfig, dryRun bool, log *logger.PipelineLogger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		games:   games,
		odds:    odds,
		sports:  sports,
		dryRun:  dryRun,
		log:     log,
	}
}

// Run executes one ingest pass pinned to runID. Sports are isolated from
// each other: a fetch failure or contract violation on one sport never
// blocks the rest. A contract violation anywhere fails the whole run after
// every sport has been attempted, so the job run is marked failed.
func (p *Pipeline) Run(ctx context.Context, runID uuid.UUID) (*Result, error) {
	result := &Result{SportErrors: make(map[string]string)}

	for _, sport := range p.sports {
		if !sport.Active {
			continue
		}

		if err := p.runSport(ctx, runID, sport, result); err != nil {
			if models.IsContractViolation(err) {
				result.ContractViolations = append(result.ContractViolations, err.Error())
			} else {
				result.SportErrors[sport.Key] = err.Error()
			}
		}
	}

	if len(result.ContractViolations) > 0 {
		return result, fmt.Errorf("contract violation: %s", strings.Join(result.ContractViolations, "; "))
	}

	return result, nil
}

func (p *Pipeline) runSport(ctx context.Context, runID uuid.UUID, sport config.SportConfig, result *Result) error {
	fetched, err := p.fetcher.FetchUpcoming(ctx, sport, sport.HoursAhead)
	if err != nil {
		return err
	}

	normalized := len(fetched.Games)
	skipped := fetched.RawCount - normalized
	result.SkippedMissingFields += skipped

	if fetched.RawCount > 0 && float64(normalized) < float64(fetched.RawCount)*normalizedFloor {
		p.log.LogContractViolation(sport.Key, fetched.RawCount, normalized)
		metrics.RecordContractViolation(sport.Key)
		return &models.ContractViolationError{
			Sport:           sport.Key,
			RawCount:        fetched.RawCount,
			NormalizedCount: normalized,
		}
	}

	if p.dryRun {
		p.log.LogIngestSport(sport.Key, fetched.RawCount, normalized, 0, 0, skipped)
		return nil
	}

	snapshots := make([]*models.OddsSnapshot, 0, normalized)
	upserted := 0
	for i := range fetched.Games {
		game := fetched.Games[i].Game
		if err := p.games.Upsert(ctx, &game); err != nil {
			return fmt.Errorf("upsert game %s: %w", game.GameID, err)
		}
		upserted++

		snapshot := fetched.Games[i].Snapshot
		snapshot.JobRunID = runID
		snapshots = append(snapshots, &snapshot)
	}

	if err := p.odds.InsertBatch(ctx, snapshots); err != nil {
		return fmt.Errorf("insert snapshots for %s: %w", sport.Key, err)
	}

	result.GamesUpserted += upserted
	result.SnapshotsInserted += len(snapshots)
	metrics.RecordIngest(upserted, len(snapshots))
	p.log.LogIngestSport(sport.Key, fetched.RawCount, normalized, upserted, len(snapshots), skipped)

	return nil
}
