package database

import (
	"context"
	"fmt"

	"github.com/yourusername/edgecard/internal/config"
)

// requiredTables is the persisted state layout the pipeline owns.
var requiredTables = []string{
	"games",
	"odds_snapshots",
	"model_outputs",
	"card_payloads",
	"card_results",
	"game_results",
	"tracking_stats",
	"job_runs",
}

// Initialize creates a database connection pool and verifies the schema
// has been migrated. Migrations run out-of-band (see migrations/).
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to check schema: %w", err)
		}
		if !exists {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("table %q missing; run migrations from migrations/ before starting", table)
		}
	}

	return db, nil
}
