package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/models"
)

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// UpsertGameResult inserts or updates the final score for a game
func (r *PostgresResultRepository) UpsertGameResult(ctx context.Context, result *models.GameResult) error {
	_, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO game_results (game_id, final_score_home, final_score_away, status, result_source, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			final_score_home = EXCLUDED.final_score_home,
			final_score_away = EXCLUDED.final_score_away,
			status = EXCLUDED.status,
			result_source = EXCLUDED.result_source,
			settled_at = EXCLUDED.settled_at`,
		result.GameID, result.FinalScoreHome, result.FinalScoreAway,
		result.Status, result.ResultSource, result.SettledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game result: %w", database.MapError(err))
	}

	return nil
}

// GetGameResult retrieves the result row for a game
func (r *PostgresResultRepository) GetGameResult(ctx context.Context, gameID string) (*models.GameResult, error) {
	result := &models.GameResult{}
	err := r.db.GetPool().QueryRow(ctx, `
		SELECT game_id, final_score_home, final_score_away, status, result_source, settled_at
		FROM game_results WHERE game_id = $1`, gameID,
	).Scan(
		&result.GameID, &result.FinalScoreHome, &result.FinalScoreAway,
		&result.Status, &result.ResultSource, &result.SettledAt,
	)
	if err != nil {
		return nil, database.MapError(err)
	}

	return result, nil
}

// MarkCardResult grades a pending card result. The status='pending' gate
// makes settlement idempotent; a settled row is never re-graded. Returns
// whether a row actually transitioned.
func (r *PostgresResultRepository) MarkCardResult(ctx context.Context, cardID uuid.UUID, result string, pnlUnits decimal.Decimal, settledAt time.Time) (bool, error) {
	commandTag, err := r.db.GetPool().Exec(ctx, `
		UPDATE card_results
		SET status = 'settled', result = $2, pnl_units = $3, settled_at = $4
		WHERE card_id = $1 AND status = 'pending'`,
		cardID, result, pnlUnits, settledAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark card result: %w", database.MapError(err))
	}

	return commandTag.RowsAffected() > 0, nil
}

// VoidStalePending voids pending results (PASS and NEUTRAL cards that never
// constituted a play) whose game has been final longer than the grace period.
func (r *PostgresResultRepository) VoidStalePending(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	commandTag, err := r.db.GetPool().Exec(ctx, `
		UPDATE card_results cr
		SET status = 'void', settled_at = $2
		FROM card_payloads cp, game_results gr
		WHERE cr.card_id = cp.id
		  AND gr.game_id = cp.game_id
		  AND cr.status = 'pending'
		  AND gr.status = 'final'
		  AND gr.settled_at < $1`,
		now.UTC().Add(-olderThan), now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to void stale pending results: %w", err)
	}

	return int(commandTag.RowsAffected()), nil
}

// UpsertTrackingStat writes a rolling aggregate row
func (r *PostgresResultRepository) UpsertTrackingStat(ctx context.Context, stat *models.TrackingStat) error {
	_, err := r.db.GetPool().Exec(ctx, `
		INSERT INTO tracking_stats (sport, card_category, recommended_bet_type,
		                            wins, losses, pushes, total_pnl_units, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (sport, card_category, recommended_bet_type) DO UPDATE SET
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			pushes = EXCLUDED.pushes,
			total_pnl_units = EXCLUDED.total_pnl_units,
			last_updated = EXCLUDED.last_updated`,
		stat.Sport, stat.CardCategory, stat.RecommendedBetType,
		stat.Wins, stat.Losses, stat.Pushes, stat.TotalPnLUnits, stat.LastUpdated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tracking stat: %w", database.MapError(err))
	}

	return nil
}

// RecomputeTrackingStat re-aggregates all settled card results for a key
// and upserts the row. The full recompute keeps the aggregate correct even
// after out-of-order settlement passes.
func (r *PostgresResultRepository) RecomputeTrackingStat(ctx context.Context, sport, cardCategory, betType string, now time.Time) (*models.TrackingStat, error) {
	stat := &models.TrackingStat{
		Sport:              sport,
		CardCategory:       cardCategory,
		RecommendedBetType: betType,
		LastUpdated:        now.UTC(),
	}

	err := r.db.GetPool().QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE cr.result = 'win'),
			COUNT(*) FILTER (WHERE cr.result = 'loss'),
			COUNT(*) FILTER (WHERE cr.result = 'push'),
			COALESCE(SUM(cr.pnl_units), 0)
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		WHERE cr.status = 'settled'
		  AND cp.sport = $1
		  AND cp.card_category = $2
		  AND cp.payload_data ->> 'recommended_bet_type' = $3`,
		sport, cardCategory, betType,
	).Scan(&stat.Wins, &stat.Losses, &stat.Pushes, &stat.TotalPnLUnits)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute tracking stat: %w", err)
	}

	if err := r.UpsertTrackingStat(ctx, stat); err != nil {
		return nil, err
	}

	return stat, nil
}

// GetLedger returns the settled-card play ledger. The dedup subquery keeps
// one row per (game_id, card_type); the market filter is applied on both
// the inner and outer sides so the set stays consistent.
func (r *PostgresResultRepository) GetLedger(ctx context.Context, filter LedgerFilter) ([]*LedgerRow, error) {
	query := `
		SELECT card_id, game_id, sport, card_type, card_category, card_title,
		       recommended_bet_type, result, pnl_units, settled_at
		FROM (
			SELECT cr.card_id, cp.game_id, cp.sport, cp.card_type, cp.card_category,
			       cp.card_title, cp.payload_data ->> 'recommended_bet_type' AS recommended_bet_type,
			       cr.result, cr.pnl_units, cr.settled_at,
			       ROW_NUMBER() OVER (
			           PARTITION BY cp.game_id, cp.card_type ORDER BY cp.created_at DESC
			       ) AS rn
			FROM card_results cr
			JOIN card_payloads cp ON cp.id = cr.card_id
			WHERE cr.status = 'settled'
			  AND ($1 = '' OR cp.sport = $1)
			  AND ($2 = '' OR cp.payload_data ->> 'recommended_bet_type' = $2)
			  AND ($3 = '' OR cp.card_category = $3)
		) ranked
		WHERE rn = 1
		  AND ($2 = '' OR recommended_bet_type = $2)
		ORDER BY settled_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, filter.Sport, filter.Market, filter.CardCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to query play ledger: %w", err)
	}
	defer rows.Close()

	var result []*LedgerRow
	for rows.Next() {
		row := &LedgerRow{}
		var recommendedBetType *string
		var gradeResult *string
		err := rows.Scan(
			&row.CardID, &row.GameID, &row.Sport, &row.CardType, &row.CardCategory,
			&row.CardTitle, &recommendedBetType, &gradeResult, &row.PnLUnits, &row.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		if recommendedBetType != nil {
			row.RecommendedBetType = *recommendedBetType
		}
		if gradeResult != nil {
			row.Result = *gradeResult
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// GetSegments aggregates the ledger by (sport, card_category, recommended_bet_type)
func (r *PostgresResultRepository) GetSegments(ctx context.Context, filter LedgerFilter) ([]*models.TrackingStat, error) {
	query := `
		SELECT sport, card_category, recommended_bet_type,
		       wins, losses, pushes, total_pnl_units, last_updated
		FROM tracking_stats
		WHERE ($1 = '' OR sport = $1)
		  AND ($2 = '' OR recommended_bet_type = $2)
		  AND ($3 = '' OR card_category = $3)
		ORDER BY sport, card_category, recommended_bet_type
	`

	rows, err := r.db.GetPool().Query(ctx, query, filter.Sport, filter.Market, filter.CardCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var result []*models.TrackingStat
	for rows.Next() {
		stat := &models.TrackingStat{}
		err := rows.Scan(
			&stat.Sport, &stat.CardCategory, &stat.RecommendedBetType,
			&stat.Wins, &stat.Losses, &stat.Pushes, &stat.TotalPnLUnits, &stat.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		result = append(result, stat)
	}

	return result, rows.Err()
}
