package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OddsSnapshot is an append-only point-in-time capture of a game's markets.
// Snapshots are never updated; (game_id, captured_at) is unique.
type OddsSnapshot struct {
	ID             int64           `db:"id" json:"id"`
	GameID         string          `db:"game_id" json:"game_id" validate:"required"`
	CapturedAt     time.Time       `db:"captured_at" json:"captured_at" validate:"required"`
	MoneylineHome  *float64        `db:"moneyline_home" json:"moneyline_home"`
	MoneylineAway  *float64        `db:"moneyline_away" json:"moneyline_away"`
	Total          *float64        `db:"total" json:"total"`
	SpreadHome     *float64        `db:"spread_home" json:"spread_home"`
	SpreadHomeOdds *float64        `db:"spread_home_odds" json:"spread_home_odds"`
	SpreadAwayOdds *float64        `db:"spread_away_odds" json:"spread_away_odds"`
	RawPayload     json.RawMessage `db:"raw_payload" json:"raw_payload"`
	JobRunID       uuid.UUID       `db:"job_run_id" json:"job_run_id"`
}

// HasMoneyline reports whether both moneyline sides are priced.
func (o *OddsSnapshot) HasMoneyline() bool {
	return o.MoneylineHome != nil && o.MoneylineAway != nil
}

// ImpliedHomeProbability returns the vig-free implied probability of the
// home side from the moneyline, or 0 when either side is unpriced.
func (o *OddsSnapshot) ImpliedHomeProbability() float64 {
	if !o.HasMoneyline() {
		return 0
	}
	home := impliedFromAmerican(*o.MoneylineHome)
	away := impliedFromAmerican(*o.MoneylineAway)
	if home+away == 0 {
		return 0
	}
	return home / (home + away)
}

func impliedFromAmerican(odds float64) float64 {
	if odds < 0 {
		return -odds / (-odds + 100)
	}
	return 100 / (odds + 100)
}
