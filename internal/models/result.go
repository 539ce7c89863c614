package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardResult statuses
const (
	CardResultPending = "pending"
	CardResultSettled = "settled"
	CardResultVoid    = "void"
)

// Card grading results
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultPush = "push"
)

// CardResult is the settlement row auto-created alongside a CardPayload.
// A settled row is immutable; only pending rows may transition.
type CardResult struct {
	CardID    uuid.UUID       `db:"card_id" json:"card_id"`
	Status    string          `db:"status" json:"status" validate:"oneof=pending settled void"`
	Result    *string         `db:"result" json:"result"`
	PnLUnits  decimal.Decimal `db:"pnl_units" json:"pnl_units"`
	SettledAt *time.Time      `db:"settled_at" json:"settled_at"`
}

// IsPending reports whether the row is still eligible for grading.
func (r *CardResult) IsPending() bool {
	return r.Status == CardResultPending
}

// TrackingStat is the rolling aggregate keyed by
// (sport, card_category, recommended_bet_type).
type TrackingStat struct {
	Sport              string          `db:"sport" json:"sport"`
	CardCategory       string          `db:"card_category" json:"card_category"`
	RecommendedBetType string          `db:"recommended_bet_type" json:"recommended_bet_type"`
	Wins               int             `db:"wins" json:"wins"`
	Losses             int             `db:"losses" json:"losses"`
	Pushes             int             `db:"pushes" json:"pushes"`
	TotalPnLUnits      decimal.Decimal `db:"total_pnl_units" json:"total_pnl_units"`
	LastUpdated        time.Time       `db:"last_updated" json:"last_updated"`
}

// Record folds one settled result into the aggregate.
func (t *TrackingStat) Record(result string, pnl decimal.Decimal) {
	switch result {
	case ResultWin:
		t.Wins++
	case ResultLoss:
		t.Losses++
	case ResultPush:
		t.Pushes++
	}
	t.TotalPnLUnits = t.TotalPnLUnits.Add(pnl)
}
