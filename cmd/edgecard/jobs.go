package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/edgecard/internal/jobs"
)

// auditKeyLimit bounds how many recent runs the audit inspects
const auditKeyLimit = 500

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one hourly odds pull immediately",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		key := jobs.HourlyOddsKey(time.Now(), a.cfg.Location())
		outcome, err := a.runtime.Execute(ctx, jobs.JobPullOddsHourly, &key, func(ctx context.Context, runID uuid.UUID) error {
			result, err := a.pipeline.Run(ctx, runID)
			if result != nil {
				printJSON(cmd, result)
			}
			return err
		})
		if err != nil {
			return err
		}
		if !outcome.Ran() {
			a.log.WithField("reason", outcome.Skipped).Info("Ingest skipped for this hour bucket")
		}
		return nil
	},
}

var fanoutCmd = &cobra.Command{
	Use:   "fanout <sport>",
	Short: "Run one model fan-out pass for a sport",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		sport, ok := a.cfg.SportByKey(args[0])
		if !ok {
			return fmt.Errorf("sport %q is not configured", args[0])
		}

		now := time.Now()
		key := jobs.FixedModelKey(sport.Key, now, a.cfg.Location(), now.In(a.cfg.Location()).Format("15:04"))
		outcome, err := a.runtime.Execute(ctx, jobs.ModelJobName(sport.Key), &key, func(ctx context.Context, _ uuid.UUID) error {
			result, err := a.fanout.RunSport(ctx, sport, now.UTC())
			if result != nil {
				printJSON(cmd, result)
			}
			return err
		})
		if err != nil {
			return err
		}
		if !outcome.Ran() {
			a.log.WithField("reason", outcome.Skipped).Info("Fan-out skipped")
		}
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle game results and pending cards once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		now := time.Now().UTC()
		_, err = a.runtime.Execute(ctx, jobs.JobSettleGameResults, nil, func(ctx context.Context, _ uuid.UUID) error {
			outcome, err := a.engine.SettleGameResults(ctx, now)
			if outcome != nil {
				printJSON(cmd, outcome)
			}
			return err
		})
		if err != nil {
			return err
		}

		_, err = a.runtime.Execute(ctx, jobs.JobSettlePendingCard, nil, func(ctx context.Context, _ uuid.UUID) error {
			outcome, err := a.engine.SettlePendingCards(ctx, now)
			if outcome != nil {
				printJSON(cmd, outcome)
			}
			return err
		})
		return err
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark orphaned job runs failed and void stale pending cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		orphaned, err := a.runtime.SweepOrphans(ctx, a.orphanThreshold())
		if err != nil {
			return err
		}

		voided, err := a.engine.VoidSweep(ctx, time.Now().UTC())
		if err != nil {
			return err
		}

		printJSON(cmd, map[string]int{"orphaned": orphaned, "voided": voided})
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit recent job keys against the documented formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		recent, err := a.repos.JobRun.RecentKeys(ctx, auditKeyLimit)
		if err != nil {
			return err
		}

		report := jobs.AuditKeys(recent)
		printJSON(cmd, report)

		if len(report.Invalid) > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		cmd.PrintErrln(err)
		return
	}
	cmd.Println(string(out))
}
