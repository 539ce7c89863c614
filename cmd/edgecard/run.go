package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/edgecard/internal/api"
	"github.com/yourusername/edgecard/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline daemon: scheduler plus read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		// Runs that died with the previous process get marked failed
		// before any new dispatch can collide with them
		if _, err := a.runtime.SweepOrphans(ctx, a.orphanThreshold()); err != nil {
			return err
		}

		snapshotWindow := time.Duration(a.cfg.Settlement.RecentSnapshotMins) * time.Minute
		server := api.NewServer(a.cfg.API, a.cfg.Location(), api.Deps{
			Games:    a.repos.Game,
			Cards:    a.repos.Card,
			Results:  a.repos.Result,
			JobRuns:  a.repos.JobRun,
			DB:       a.db,
			Analyzer: api.NewDriverAnalyzer(a.repos.Odds, a.drivers, snapshotWindow),
			Logger:   a.log,
		})
		if err := server.Start(ctx); err != nil {
			return err
		}

		sched := scheduler.NewScheduler(a.cfg, a.runtime, a.pipeline, a.fanout, a.engine, a.repos.Game, a.log)
		if err := sched.Start(); err != nil {
			return err
		}

		a.log.WithField("environment", a.cfg.App.Environment).Info("Pipeline daemon started")

		<-ctx.Done()
		a.log.Info("Shutdown signal received")

		sched.Stop()
		if err := server.Shutdown(); err != nil {
			a.log.WithError(err).Warn("Read API shutdown error")
		}

		return nil
	},
}
