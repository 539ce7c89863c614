// Package scheduler is the wall-clock dispatch loop. It decides WHEN jobs
// run; all work executes under the job runtime so idempotency and audit
// live there, not here.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/fanout"
	"github.com/yourusername/edgecard/internal/ingest"
	"github.com/yourusername/edgecard/internal/jobs"
	"github.com/yourusername/edgecard/internal/oddsapi"
	"github.com/yourusername/edgecard/internal/repository"
	"github.com/yourusername/edgecard/internal/settlement"
)

// tickTimeout bounds a single dispatch pass
const tickTimeout = 10 * time.Minute

// Scheduler dispatches ingest, fan-out and settlement on the master tick
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	runtime  *jobs.Runtime
	pipeline *ingest.Pipeline
	fanout   *fanout.Service
	engine   *settlement.Engine
	games    repository.GameRepository
	loc      *time.Location
	logger   *logrus.Logger

	mu           sync.RWMutex
	isRunning    bool
	nextSettle   time.Time
	tickOverride func() time.Time
}

// NewScheduler creates the dispatch loop in the configured timezone
func NewScheduler(cfg *config.Config, runtime *jobs.Runtime, pipeline *ingest.Pipeline, fanoutSvc *fanout.Service, engine *settlement.Engine, games repository.GameRepository, logger *logrus.Logger) *Scheduler {
	loc := cfg.Location()
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		cfg:      cfg,
		runtime:  runtime,
		pipeline: pipeline,
		fanout:   fanoutSvc,
		engine:   engine,
		games:    games,
		loc:      loc,
		logger:   logger,
	}
}

// Start registers the master tick and begins dispatching
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	spec := fmt.Sprintf("@every %dms", s.cfg.Scheduler.TickMS)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("failed to register master tick: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithFields(logrus.Fields{
		"tick":     s.cfg.TickInterval().String(),
		"timezone": s.loc.String(),
	}).Info("Scheduler started")

	return nil
}

// Stop gracefully stops the dispatch loop
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning reports whether the dispatch loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) now() time.Time {
	if s.tickOverride != nil {
		return s.tickOverride().In(s.loc)
	}
	return time.Now().In(s.loc)
}

// tick is one dispatch pass. Every decision is recomputed from the wall
// clock; missed ticks are harmless because dispatch is idempotent by key.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	now := s.now()

	s.dispatchIngest(ctx, now)

	for _, sport := range s.cfg.ActiveSports() {
		if !sport.ModelEnabled || !sport.InSeason(now) {
			continue
		}
		s.dispatchFixedWindows(ctx, sport, now)
		s.dispatchTMinus(ctx, sport, now)
	}

	s.dispatchSettlement(ctx, now)
}

func (s *Scheduler) dispatchIngest(ctx context.Context, now time.Time) {
	if !s.cfg.Features.OddsPullEnabled {
		return
	}

	tokens := oddsapi.TokensForFetch(s.cfg.ActiveSports(), s.cfg.OddsAPI.Regions)
	s.logger.WithField("estimated_tokens", tokens).Debug("Dispatching hourly odds pull")

	key := jobs.HourlyOddsKey(now, s.loc)
	_, err := s.runtime.Execute(ctx, jobs.JobPullOddsHourly, &key, func(ctx context.Context, runID uuid.UUID) error {
		_, err := s.pipeline.Run(ctx, runID)
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("Hourly odds pull failed")
	}
}

func (s *Scheduler) dispatchFixedWindows(ctx context.Context, sport config.SportConfig, now time.Time) {
	tolerance := time.Duration(s.cfg.Scheduler.ToleranceMinutes) * time.Minute

	for _, window := range sport.FixedWindows {
		due, err := fixedWindowDue(now, window, tolerance, s.cfg.Scheduler.FixedCatchup)
		if err != nil {
			s.logger.WithError(err).WithField("sport", sport.Key).Warn("Bad fixed window; skipping")
			continue
		}
		if !due {
			continue
		}

		key := jobs.FixedModelKey(sport.Key, now, s.loc, window)
		s.runModel(ctx, sport, key)
	}
}

func (s *Scheduler) dispatchTMinus(ctx context.Context, sport config.SportConfig, now time.Time) {
	if len(sport.TMinusWindows) == 0 {
		return
	}

	tolerance := float64(s.cfg.Scheduler.ToleranceMinutes)
	horizon := time.Duration(maxBandMinutes(sport.TMinusWindows))*time.Minute + time.Duration(tolerance)*time.Minute

	upcoming, err := s.games.GetUpcoming(ctx, sport.Key, horizon, now)
	if err != nil {
		s.logger.WithError(err).WithField("sport", sport.Key).Error("Failed to load games for t-minus dispatch")
		return
	}

	for _, game := range upcoming {
		minutes := float64(game.MinutesToStart(now))
		band, ok := tMinusBand(minutes, sport.TMinusWindows, tolerance)
		if !ok {
			continue
		}

		key := jobs.TMinusModelKey(sport.Key, game.GameID, band)
		s.runModel(ctx, sport, key)
	}
}

func (s *Scheduler) runModel(ctx context.Context, sport config.SportConfig, key string) {
	_, err := s.runtime.Execute(ctx, jobs.ModelJobName(sport.Key), &key, func(ctx context.Context, _ uuid.UUID) error {
		_, err := s.fanout.RunSport(ctx, sport, time.Now().UTC())
		return err
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"sport":   sport.Key,
			"job_key": key,
		}).Error("Model fan-out failed")
	}
}

func (s *Scheduler) dispatchSettlement(ctx context.Context, now time.Time) {
	s.mu.Lock()
	if now.Before(s.nextSettle) {
		s.mu.Unlock()
		return
	}
	s.nextSettle = now.Add(time.Duration(s.cfg.Settlement.CadenceMinutes) * time.Minute)
	s.mu.Unlock()

	_, err := s.runtime.Execute(ctx, jobs.JobSettleGameResults, nil, func(ctx context.Context, _ uuid.UUID) error {
		_, err := s.engine.SettleGameResults(ctx, now.UTC())
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("Game result settlement failed")
	}

	_, err = s.runtime.Execute(ctx, jobs.JobSettlePendingCard, nil, func(ctx context.Context, _ uuid.UUID) error {
		if _, err := s.engine.SettlePendingCards(ctx, now.UTC()); err != nil {
			return err
		}
		_, err := s.engine.VoidSweep(ctx, now.UTC())
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("Card settlement failed")
	}
}
