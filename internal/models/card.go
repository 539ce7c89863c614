package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Driver prediction values
const (
	PredictionHome    = "HOME"
	PredictionAway    = "AWAY"
	PredictionOver    = "OVER"
	PredictionUnder   = "UNDER"
	PredictionNeutral = "NEUTRAL"
	PredictionPass    = "PASS"
)

// Recommendation types. The recommendation is the authoritative bet
// direction on a card; settlement grades against it, not the prediction.
const (
	RecommendationMLHome     = "ML_HOME"
	RecommendationMLAway     = "ML_AWAY"
	RecommendationSpreadHome = "SPREAD_HOME"
	RecommendationSpreadAway = "SPREAD_AWAY"
	RecommendationTotalOver  = "TOTAL_OVER"
	RecommendationTotalUnder = "TOTAL_UNDER"
	RecommendationPass       = "PASS"
)

// Bet markets
const (
	MarketMoneyline = "moneyline"
	MarketSpread    = "spread"
	MarketTotal     = "total"
)

// Bet directions within a market
const (
	DirectionHome  = "home"
	DirectionAway  = "away"
	DirectionOver  = "over"
	DirectionUnder = "under"
)

// Driver statuses
const (
	DriverStatusOK      = "ok"
	DriverStatusMissing = "missing"
)

// CardCategoryDriver is the category for cards produced by the driver
// fan-out; tracking stats aggregate on it.
const CardCategoryDriver = "driver"

// OddsContext carries the exact market fields used to grade a card.
type OddsContext struct {
	H2HHome        *float64 `json:"h2h_home,omitempty"`
	H2HAway        *float64 `json:"h2h_away,omitempty"`
	Total          *float64 `json:"total,omitempty"`
	SpreadHome     *float64 `json:"spread_home,omitempty"`
	SpreadHomeOdds *float64 `json:"spread_home_odds,omitempty"`
	SpreadAwayOdds *float64 `json:"spread_away_odds,omitempty"`
}

// Recommendation is the authoritative bet direction on a card.
type Recommendation struct {
	Type string `json:"type"`
}

// DriverInfo is the driver sub-object embedded in payload_data.
type DriverInfo struct {
	Key               string             `json:"key"`
	Score             float64            `json:"score"`
	EVThresholdPassed bool               `json:"ev_threshold_passed"`
	Inputs            map[string]float64 `json:"inputs,omitempty"`
	Status            string             `json:"status"`
}

// CardMeta describes how a card's payload was produced.
type CardMeta struct {
	InferenceSource string `json:"inference_source"`
	IsMock          bool   `json:"is_mock"`
}

// PayloadData is the presentation payload serialized into a card.
type PayloadData struct {
	Prediction         string          `json:"prediction" validate:"required,oneof=HOME AWAY OVER UNDER NEUTRAL PASS"`
	Confidence         float64         `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning          string          `json:"reasoning" validate:"required"`
	OddsContext        OddsContext     `json:"odds_context"`
	Driver             *DriverInfo     `json:"driver,omitempty"`
	Recommendation     *Recommendation `json:"recommendation,omitempty"`
	RecommendedBetType string          `json:"recommended_bet_type,omitempty"`
	Meta               CardMeta        `json:"meta"`
}

// CardPayload is a presentation-ready card. Per (game_id, card_type) only
// the latest by created_at is the active card; older rows are kept for audit.
type CardPayload struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	GameID         string          `db:"game_id" json:"game_id" validate:"required"`
	Sport          string          `db:"sport" json:"sport" validate:"required"`
	CardType       string          `db:"card_type" json:"card_type" validate:"required"`
	CardCategory   string          `db:"card_category" json:"card_category"`
	CardTitle      string          `db:"card_title" json:"card_title" validate:"required"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	ExpiresAt      *time.Time      `db:"expires_at" json:"expires_at"`
	PayloadData    json.RawMessage `db:"payload_data" json:"payload_data"`
	ModelOutputIDs []uuid.UUID     `db:"model_output_ids" json:"model_output_ids,omitempty"`
}

// ParsePayload decodes the serialized payload_data.
func (c *CardPayload) ParsePayload() (*PayloadData, error) {
	if len(c.PayloadData) == 0 {
		return nil, NewValidationError("empty_payload", "card has no payload_data")
	}
	var pd PayloadData
	if err := json.Unmarshal(c.PayloadData, &pd); err != nil {
		return nil, NewValidationError("malformed_payload", err.Error())
	}
	return &pd, nil
}

// IsExpired reports whether the card has passed its expiry boundary.
func (c *CardPayload) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// ModelOutput is the raw output of one driver at a point in time for a game.
type ModelOutput struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	GameID       string          `db:"game_id" json:"game_id"`
	Sport        string          `db:"sport" json:"sport"`
	ModelVersion string          `db:"model_version" json:"model_version"`
	CardType     string          `db:"card_type" json:"card_type"`
	SnapshotID   int64           `db:"snapshot_id" json:"snapshot_id"`
	Output       json.RawMessage `db:"output" json:"output"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// RecommendationPlay maps a recommendation type to its graded market and
// direction. The boolean is false for PASS and unknown types.
func RecommendationPlay(recType string) (market, direction string, ok bool) {
	switch recType {
	case RecommendationMLHome:
		return MarketMoneyline, DirectionHome, true
	case RecommendationMLAway:
		return MarketMoneyline, DirectionAway, true
	case RecommendationSpreadHome:
		return MarketSpread, DirectionHome, true
	case RecommendationSpreadAway:
		return MarketSpread, DirectionAway, true
	case RecommendationTotalOver:
		return MarketTotal, DirectionOver, true
	case RecommendationTotalUnder:
		return MarketTotal, DirectionUnder, true
	default:
		return "", "", false
	}
}
