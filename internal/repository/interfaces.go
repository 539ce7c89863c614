package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/edgecard/internal/models"
)

// GameRepository defines the interface for game data access
type GameRepository interface {
	Upsert(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, gameID string) (*models.Game, error)
	GetUpcoming(ctx context.Context, sport string, within time.Duration, now time.Time) ([]*models.Game, error)
	GetFromBoundary(ctx context.Context, boundary time.Time) ([]*models.Game, error)
	GetPendingResults(ctx context.Context, lookback time.Duration, now time.Time) ([]*models.Game, error)
	UpdateStatus(ctx context.Context, gameID, status string) error
}

// OddsRepository defines the interface for odds snapshot access.
// Snapshots are append-only; a conflict fails the whole batch.
type OddsRepository interface {
	InsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) error
	GetLatest(ctx context.Context, gameID string) (*models.OddsSnapshot, error)
	GetLatestSince(ctx context.Context, gameID string, since time.Time) (*models.OddsSnapshot, error)
	CountForGame(ctx context.Context, gameID string) (int, error)
}

// CardRepository defines the interface for card payload and model output
// access. Insertion validates payload_data against the card-type registry
// and creates the pending CardResult in the same transaction.
type CardRepository interface {
	PrepareModelAndCardWrite(ctx context.Context, gameID, modelVersion, cardType string) error
	InsertCardPayload(ctx context.Context, card *models.CardPayload) error
	InsertModelOutput(ctx context.Context, output *models.ModelOutput) error
	GetLatestPerGameType(ctx context.Context, gameID string, now time.Time) ([]*models.CardPayload, error)
	GetAllCards(ctx context.Context, gameID string) ([]*models.CardPayload, error)
	GetSettleable(ctx context.Context) ([]*SettleableCard, error)
}

// JobRunRepository defines the interface for job run audit rows
type JobRunRepository interface {
	Insert(ctx context.Context, run *models.JobRun) error
	MarkSuccess(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, endedAt time.Time, errorMessage string) error
	HasRunning(ctx context.Context, jobName string, jobKey *string) (bool, error)
	WasRecentlySuccessful(ctx context.Context, jobName string, jobKey *string, window time.Duration) (bool, error)
	SweepOrphans(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
	LastSuccessPerJob(ctx context.Context) (map[string]time.Time, error)
	RecentKeys(ctx context.Context, limit int) ([]RecentJobKey, error)
}

// ResultRepository defines the interface for game results, card results
// and tracking stats
type ResultRepository interface {
	UpsertGameResult(ctx context.Context, result *models.GameResult) error
	GetGameResult(ctx context.Context, gameID string) (*models.GameResult, error)
	MarkCardResult(ctx context.Context, cardID uuid.UUID, result string, pnlUnits decimal.Decimal, settledAt time.Time) (bool, error)
	VoidStalePending(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
	UpsertTrackingStat(ctx context.Context, stat *models.TrackingStat) error
	RecomputeTrackingStat(ctx context.Context, sport, cardCategory, betType string, now time.Time) (*models.TrackingStat, error)
	GetLedger(ctx context.Context, filter LedgerFilter) ([]*LedgerRow, error)
	GetSegments(ctx context.Context, filter LedgerFilter) ([]*models.TrackingStat, error)
}

// SettleableCard joins a pending card result with its final game result.
type SettleableCard struct {
	Card       models.CardPayload
	GameResult models.GameResult
}

// RecentJobKey is one job_runs row projected for the key-format audit.
type RecentJobKey struct {
	JobName string
	JobKey  *string
	Status  string
}

// LedgerFilter narrows the play ledger exposed by /api/results.
type LedgerFilter struct {
	Sport        string
	Market       string
	CardCategory string
}

// LedgerRow is one settled card in the play ledger.
type LedgerRow struct {
	CardID             uuid.UUID       `json:"card_id"`
	GameID             string          `json:"game_id"`
	Sport              string          `json:"sport"`
	CardType           string          `json:"card_type"`
	CardCategory       string          `json:"card_category"`
	CardTitle          string          `json:"card_title"`
	RecommendedBetType string          `json:"recommended_bet_type"`
	Result             string          `json:"result"`
	PnLUnits           decimal.Decimal `json:"pnl_units"`
	SettledAt          time.Time       `json:"settled_at"`
}
