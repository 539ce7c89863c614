package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/edgecard/internal/cards"
	"github.com/yourusername/edgecard/internal/database"
	"github.com/yourusername/edgecard/internal/models"
)

// PostgresCardRepository implements CardRepository for PostgreSQL
type PostgresCardRepository struct {
	db       *database.DB
	registry *cards.Registry
}

// NewPostgresCardRepository creates a new card repository backed by the
// card-type validator registry.
func NewPostgresCardRepository(db *database.DB, registry *cards.Registry) CardRepository {
	return &PostgresCardRepository{db: db, registry: registry}
}

const cardColumns = `id, game_id, sport, card_type, card_category, card_title,
	created_at, expires_at, payload_data, model_output_ids`

// PrepareModelAndCardWrite clears prior model outputs and still-pending
// cards of the (game_id, card_type) pair so the fan-out is a rewrite per
// driver. Settled cards and their ledger rows are never touched.
func (c *PostgresCardRepository) PrepareModelAndCardWrite(ctx context.Context, gameID, modelVersion, cardType string) error {
	return c.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM model_outputs WHERE game_id = $1 AND card_type = $2 AND model_version = $3`,
			gameID, cardType, modelVersion,
		); err != nil {
			return fmt.Errorf("failed to clear model outputs: %w", database.MapError(err))
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM card_results
			WHERE status = 'pending'
			  AND card_id IN (SELECT id FROM card_payloads WHERE game_id = $1 AND card_type = $2)`,
			gameID, cardType,
		); err != nil {
			return fmt.Errorf("failed to clear pending card results: %w", database.MapError(err))
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM card_payloads
			WHERE game_id = $1 AND card_type = $2
			  AND id NOT IN (SELECT card_id FROM card_results)`,
			gameID, cardType,
		); err != nil {
			return fmt.Errorf("failed to clear card payloads: %w", database.MapError(err))
		}

		return nil
	})
}

// InsertCardPayload validates the payload against the card-type registry,
// writes the card, and creates the associated pending CardResult in the
// same transaction.
func (c *PostgresCardRepository) InsertCardPayload(ctx context.Context, card *models.CardPayload) error {
	if err := c.registry.Validate(card.CardType, card.PayloadData); err != nil {
		return err
	}

	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	if card.CardCategory == "" {
		card.CardCategory = models.CardCategoryDriver
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}

	var outputIDs []byte
	if len(card.ModelOutputIDs) > 0 {
		var err error
		outputIDs, err = json.Marshal(card.ModelOutputIDs)
		if err != nil {
			return fmt.Errorf("failed to encode model output ids: %w", err)
		}
	}

	return c.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO card_payloads (id, game_id, sport, card_type, card_category,
			                           card_title, created_at, expires_at, payload_data,
			                           model_output_ids)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			card.ID, card.GameID, card.Sport, card.CardType, card.CardCategory,
			card.CardTitle, card.CreatedAt.UTC(), card.ExpiresAt, card.PayloadData, outputIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card payload: %w", database.MapError(err))
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO card_results (card_id, status) VALUES ($1, 'pending')`,
			card.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to create card result: %w", database.MapError(err))
		}

		return nil
	})
}

// InsertModelOutput stores one driver's raw output
func (c *PostgresCardRepository) InsertModelOutput(ctx context.Context, output *models.ModelOutput) error {
	if output.ID == uuid.Nil {
		output.ID = uuid.New()
	}

	_, err := c.db.GetPool().Exec(ctx, `
		INSERT INTO model_outputs (id, game_id, sport, model_version, card_type, snapshot_id, output)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		output.ID, output.GameID, output.Sport, output.ModelVersion,
		output.CardType, output.SnapshotID, output.Output,
	)
	if err != nil {
		return fmt.Errorf("failed to insert model output: %w", database.MapError(err))
	}

	return nil
}

// GetLatestPerGameType returns the active (latest, unexpired) card per
// (game_id, card_type), optionally scoped to one game. Ranking uses
// row_number ordered by created_at DESC.
func (c *PostgresCardRepository) GetLatestPerGameType(ctx context.Context, gameID string, now time.Time) ([]*models.CardPayload, error) {
	query := `
		SELECT ` + cardColumns + ` FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY game_id, card_type ORDER BY created_at DESC
			) AS rn
			FROM card_payloads
			WHERE ($1 = '' OR game_id = $1)
		) ranked
		WHERE rn = 1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
	`

	rows, err := c.db.GetPool().Query(ctx, query, gameID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query latest cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// GetAllCards returns every card in created_at DESC order (dedupe=none)
func (c *PostgresCardRepository) GetAllCards(ctx context.Context, gameID string) ([]*models.CardPayload, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM card_payloads
		WHERE ($1 = '' OR game_id = $1)
		ORDER BY created_at DESC
	`

	rows, err := c.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// GetSettleable returns pending card results whose game has a final result
func (c *PostgresCardRepository) GetSettleable(ctx context.Context) ([]*SettleableCard, error) {
	query := `
		SELECT cp.id, cp.game_id, cp.sport, cp.card_type, cp.card_category, cp.card_title,
		       cp.created_at, cp.expires_at, cp.payload_data, cp.model_output_ids,
		       gr.game_id, gr.final_score_home, gr.final_score_away, gr.status,
		       gr.result_source, gr.settled_at
		FROM card_results cr
		JOIN card_payloads cp ON cp.id = cr.card_id
		JOIN game_results gr ON gr.game_id = cp.game_id
		WHERE cr.status = 'pending' AND gr.status = 'final'
		ORDER BY cp.created_at ASC
	`

	rows, err := c.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query settleable cards: %w", err)
	}
	defer rows.Close()

	var result []*SettleableCard
	for rows.Next() {
		sc := &SettleableCard{}
		var outputIDs []byte
		err := rows.Scan(
			&sc.Card.ID, &sc.Card.GameID, &sc.Card.Sport, &sc.Card.CardType,
			&sc.Card.CardCategory, &sc.Card.CardTitle, &sc.Card.CreatedAt,
			&sc.Card.ExpiresAt, &sc.Card.PayloadData, &outputIDs,
			&sc.GameResult.GameID, &sc.GameResult.FinalScoreHome, &sc.GameResult.FinalScoreAway,
			&sc.GameResult.Status, &sc.GameResult.ResultSource, &sc.GameResult.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settleable card: %w", err)
		}
		if len(outputIDs) > 0 {
			_ = json.Unmarshal(outputIDs, &sc.Card.ModelOutputIDs)
		}
		result = append(result, sc)
	}

	return result, rows.Err()
}

func scanCards(rows pgx.Rows) ([]*models.CardPayload, error) {
	var result []*models.CardPayload
	for rows.Next() {
		card := &models.CardPayload{}
		var outputIDs []byte
		err := rows.Scan(
			&card.ID, &card.GameID, &card.Sport, &card.CardType, &card.CardCategory,
			&card.CardTitle, &card.CreatedAt, &card.ExpiresAt, &card.PayloadData, &outputIDs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		if len(outputIDs) > 0 {
			_ = json.Unmarshal(outputIDs, &card.ModelOutputIDs)
		}
		result = append(result, card)
	}
	return result, rows.Err()
}
