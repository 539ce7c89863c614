package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/models"
)

// PostgresGameRepository implements GameRepository for PostgreSQL
type PostgresGameRepository struct {
	db *database.DB
}

// NewPostgresGameRepository creates a new game repository
func NewPostgresGameRepository(db *database.DB) GameRepository {
	return &PostgresGameRepository{db: db}
}

const gameColumns = `game_id, sport, home_team, away_team, game_time_utc, status, created_at, updated_at`

// Upsert inserts or updates a game on its deterministic game_id.
// Re-ingest updates schedule fields; a final status is never regressed.
func (g *PostgresGameRepository) Upsert(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (game_id, sport, home_team, away_team, game_time_utc, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			game_time_utc = EXCLUDED.game_time_utc,
			status = CASE WHEN games.status = 'final' THEN games.status ELSE EXCLUDED.status END,
			updated_at = NOW()
	`

	status := game.Status
	if status == "" {
		status = models.GameStatusScheduled
	}

	_, err := g.db.GetPool().Exec(ctx, query,
		game.GameID, game.Sport, game.HomeTeam, game.AwayTeam, game.GameTimeUTC.UTC(), status,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", database.MapError(err))
	}

	return nil
}

// GetByID retrieves a game by its stable identity
func (g *PostgresGameRepository) GetByID(ctx context.Context, gameID string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game := &models.Game{}
	err := g.db.GetPool().QueryRow(ctx, query, gameID).Scan(
		&game.GameID, &game.Sport, &game.HomeTeam, &game.AwayTeam,
		&game.GameTimeUTC, &game.Status, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapError(err)
	}

	return game, nil
}

// GetUpcoming retrieves a sport's games starting within the lookahead window
func (g *PostgresGameRepository) GetUpcoming(ctx context.Context, sport string, within time.Duration, now time.Time) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE sport = $1 AND game_time_utc >= $2 AND game_time_utc <= $3
		ORDER BY game_time_utc ASC
	`

	rows, err := g.db.GetPool().Query(ctx, query, sport, now.UTC(), now.UTC().Add(within))
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming games: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetFromBoundary retrieves games at or after the supplied instant. The
// caller computes the start-of-day boundary in its timezone so the
// comparison stays deterministic.
func (g *PostgresGameRepository) GetFromBoundary(ctx context.Context, boundary time.Time) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE game_time_utc >= $1
		ORDER BY game_time_utc ASC
	`

	rows, err := g.db.GetPool().Query(ctx, query, boundary.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query games from boundary: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// GetPendingResults retrieves started games without a final result yet,
// bounded to the lookback window.
func (g *PostgresGameRepository) GetPendingResults(ctx context.Context, lookback time.Duration, now time.Time) ([]*models.Game, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE game_time_utc < $1
		  AND game_time_utc >= $2
		  AND game_id NOT IN (SELECT game_id FROM game_results WHERE status = 'final')
		ORDER BY game_time_utc ASC
	`

	rows, err := g.db.GetPool().Query(ctx, query, now.UTC(), now.UTC().Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to query games pending results: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// UpdateStatus transitions a game's status
func (g *PostgresGameRepository) UpdateStatus(ctx context.Context, gameID, status string) error {
	commandTag, err := g.db.GetPool().Exec(ctx,
		`UPDATE games SET status = $2, updated_at = NOW() WHERE game_id = $1`,
		gameID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update game status: %w", database.MapError(err))
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

type gameRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanGames(rows gameRows) ([]*models.Game, error) {
	var games []*models.Game
	for rows.Next() {
		game := &models.Game{}
		err := rows.Scan(
			&game.GameID, &game.Sport, &game.HomeTeam, &game.AwayTeam,
			&game.GameTimeUTC, &game.Status, &game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
