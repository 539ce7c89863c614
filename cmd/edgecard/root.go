package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/edgecard/internal/cards"
	"github.com/yourusername/edgecard/internal/config"
	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/drivers"
	"github.com/yourusername/edgecard/internal/fanout"
	"github.com/yourusername/edgecard/internal/ingest"
	"github.com/yourusername/edgecard/internal/jobs"
	"github.com/yourusername/edgecard/internal/logger"
	"github.com/yourusername/edgecard/internal/oddsapi"
	"github.com/yourusername/edgecard/internal/repository"
	"github.com/yourusername/edgecard/internal/resultsapi"
	"github.com/yourusername/edgecard/internal/settlement"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "edgecard",
	Short:         "Odds ingest, card fan-out and settlement pipeline",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the configuration file")
	rootCmd.AddCommand(runCmd, ingestCmd, fanoutCmd, settleCmd, sweepCmd, auditCmd)
}

// app holds the wired pipeline for one command invocation
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	db       *database.DB
	repos    *repository.Repositories
	drivers  *drivers.Registry
	runtime  *jobs.Runtime
	pipeline *ingest.Pipeline
	fanout   *fanout.Service
	engine   *settlement.Engine
	odds     *oddsapi.Client
}

// bootstrap loads config, overlays secrets, validates and wires every
// collaborator against the database.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewLogger(cfg.App.LogLevel)

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	repos, err := repository.NewRepositories(db, cards.NewRegistry())
	if err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("build repositories: %w", err)
	}

	jobLog := logger.NewJobLogger(log)
	pipeLog := logger.NewPipelineLogger(log)
	registry := drivers.NewRegistry()
	snapshotWindow := time.Duration(cfg.Settlement.RecentSnapshotMins) * time.Minute

	oddsClient := oddsapi.NewClient(cfg.OddsAPI, log)
	resultsClient := resultsapi.NewClient(cfg.Results, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		repos:    repos,
		drivers:  registry,
		runtime:  jobs.NewRuntime(repos.JobRun, jobLog, time.Duration(cfg.Scheduler.IdempotencyWindowH)*time.Hour),
		pipeline: ingest.NewPipeline(oddsClient, repos.Game, repos.Odds, cfg.Sports, cfg.Features.DryRun, pipeLog),
		fanout:   fanout.NewService(repos.Game, repos.Odds, repos.Card, registry, snapshotWindow, cfg.Features.DryRun, pipeLog),
		engine:   settlement.NewEngine(repos.Game, repos.Card, repos.Result, resultsClient, cfg.Settlement, cfg.Location(), pipeLog),
		odds:     oddsClient,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.db.Close(ctx); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}

func (a *app) orphanThreshold() time.Duration {
	return time.Duration(a.cfg.Scheduler.OrphanThresholdMin) * time.Minute
}
