package models

import (
	"fmt"
	"strings"
	"time"
)

// Game statuses
const (
	GameStatusScheduled = "scheduled"
	GameStatusLive      = "live"
	GameStatusFinal     = "final"
)

// Game represents a scheduled or completed sporting event.
// GameID is deterministic from provider input so re-ingest upserts,
// never duplicates.
type Game struct {
	GameID      string    `db:"game_id" json:"game_id" validate:"required"`
	Sport       string    `db:"sport" json:"sport" validate:"required"`
	HomeTeam    string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam    string    `db:"away_team" json:"away_team" validate:"required"`
	GameTimeUTC time.Time `db:"game_time_utc" json:"game_time_utc" validate:"required"`
	Status      string    `db:"status" json:"status" validate:"oneof=scheduled live final"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// GameIDFor builds the stable game identity from a provider event id.
func GameIDFor(sport, providerID string) string {
	return fmt.Sprintf("game-%s-%s", strings.ToLower(sport), providerID)
}

// IsUpcoming checks if the game hasn't started yet
func (g *Game) IsUpcoming() bool {
	return g.Status == GameStatusScheduled
}

// MinutesToStart returns whole minutes until scheduled start, relative to now.
func (g *Game) MinutesToStart(now time.Time) int {
	return int(g.GameTimeUTC.Sub(now).Minutes())
}

// GameResult represents the final score for a game, sourced externally.
type GameResult struct {
	GameID         string    `db:"game_id" json:"game_id" validate:"required"`
	FinalScoreHome int       `db:"final_score_home" json:"final_score_home"`
	FinalScoreAway int       `db:"final_score_away" json:"final_score_away"`
	Status         string    `db:"status" json:"status" validate:"oneof=pending final"`
	ResultSource   string    `db:"result_source" json:"result_source"`
	SettledAt      time.Time `db:"settled_at" json:"settled_at"`
}

// GameResult statuses
const (
	GameResultPending = "pending"
	GameResultFinal   = "final"
)

// IsFinal reports whether the result can be used for settlement.
func (r *GameResult) IsFinal() bool {
	return r.Status == GameResultFinal
}
