package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/models"
)

// PostgresOddsRepository implements OddsRepository for PostgreSQL
type PostgresOddsRepository struct {
	db *database.DB
}

// NewPostgresOddsRepository creates a new odds snapshot repository
func NewPostgresOddsRepository(db *database.DB) OddsRepository {
	return &PostgresOddsRepository{db: db}
}

const snapshotColumns = `id, game_id, captured_at, moneyline_home, moneyline_away, total,
	spread_home, spread_home_odds, spread_away_odds, raw_payload, job_run_id`

// InsertBatch appends snapshots in one transaction. Any row conflict on
// (game_id, captured_at) fails the whole batch; snapshots are never updated.
func (o *PostgresOddsRepository) InsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO odds_snapshots (game_id, captured_at, moneyline_home, moneyline_away,
		                            total, spread_home, spread_home_odds, spread_away_odds,
		                            raw_payload, job_run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	err := o.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, snap := range snapshots {
			_, err := tx.Exec(ctx, query,
				snap.GameID, snap.CapturedAt.UTC(), snap.MoneylineHome, snap.MoneylineAway,
				snap.Total, snap.SpreadHome, snap.SpreadHomeOdds, snap.SpreadAwayOdds,
				snap.RawPayload, snap.JobRunID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert odds snapshot for %s: %w",
					snap.GameID, database.MapError(err))
			}
		}
		return nil
	})

	return err
}

// GetLatest retrieves the most recent snapshot for a game
func (o *PostgresOddsRepository) GetLatest(ctx context.Context, gameID string) (*models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`

	return o.scanOne(o.db.GetPool().QueryRow(ctx, query, gameID))
}

// GetLatestSince retrieves the most recent snapshot captured at or after
// the supplied instant, for drivers that require a fresh read.
func (o *PostgresOddsRepository) GetLatestSince(ctx context.Context, gameID string, since time.Time) (*models.OddsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM odds_snapshots
		WHERE game_id = $1 AND captured_at >= $2
		ORDER BY captured_at DESC
		LIMIT 1
	`

	return o.scanOne(o.db.GetPool().QueryRow(ctx, query, gameID, since.UTC()))
}

// CountForGame returns the snapshot count for a game
func (o *PostgresOddsRepository) CountForGame(ctx context.Context, gameID string) (int, error) {
	var count int
	err := o.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM odds_snapshots WHERE game_id = $1`, gameID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

func (o *PostgresOddsRepository) scanOne(row pgx.Row) (*models.OddsSnapshot, error) {
	snap := &models.OddsSnapshot{}
	err := row.Scan(
		&snap.ID, &snap.GameID, &snap.CapturedAt, &snap.MoneylineHome, &snap.MoneylineAway,
		&snap.Total, &snap.SpreadHome, &snap.SpreadHomeOdds, &snap.SpreadAwayOdds,
		&snap.RawPayload, &snap.JobRunID,
	)
	if err != nil {
		return nil, database.MapError(err)
	}
	return snap, nil
}
