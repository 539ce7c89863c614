package oddsapi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/edgecard/internal/models"
)

// defaultSpreadPrice is applied when the provider omits explicit spread
// prices (standard -110 juice).
const defaultSpreadPrice = -110

// NormalizedGame pairs the upsertable game row with the snapshot captured
// from the same provider event.
type NormalizedGame struct {
	Game     models.Game
	Snapshot models.OddsSnapshot
}

// FetchResult reports one provider fetch. RawCount is the number of games
// the provider returned before normalization; Games is the normalized
// subset. The delta between them is the caller's skipped-fields count.
type FetchResult struct {
	Games    []NormalizedGame
	Errors   []string
	RawCount int
}

type providerEvent struct {
	ID           string             `json:"id"`
	SportKey     string             `json:"sport_key"`
	CommenceTime string             `json:"commence_time"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	Bookmakers   []providerBookmaker `json:"bookmakers"`
}

type providerBookmaker struct {
	Key     string           `json:"key"`
	Markets []providerMarket `json:"markets"`
}

type providerMarket struct {
	Key      string            `json:"key"`
	Outcomes []providerOutcome `json:"outcomes"`
}

type providerOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// Normalize converts raw provider events into the internal game shape.
// Events missing home, away, or commence_time are dropped and counted via
// RawCount minus len(Games). The raw event JSON travels with each snapshot
// for audit.
func Normalize(sportKey string, rawEvents []json.RawMessage, capturedAt time.Time) *FetchResult {
	result := &FetchResult{RawCount: len(rawEvents)}

	for _, raw := range rawEvents {
		var event providerEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("malformed event: %v", err))
			continue
		}

		if event.ID == "" || event.HomeTeam == "" || event.AwayTeam == "" || event.CommenceTime == "" {
			continue
		}

		gameTime, err := time.Parse(time.RFC3339, event.CommenceTime)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("event %s: bad commence_time %q", event.ID, event.CommenceTime))
			continue
		}

		gameID := models.GameIDFor(sportKey, event.ID)
		snapshot := models.OddsSnapshot{
			GameID:     gameID,
			CapturedAt: capturedAt,
			RawPayload: raw,
		}
		extractMarkets(&snapshot, &event)

		result.Games = append(result.Games, NormalizedGame{
			Game: models.Game{
				GameID:      gameID,
				Sport:       sportKey,
				HomeTeam:    event.HomeTeam,
				AwayTeam:    event.AwayTeam,
				GameTimeUTC: gameTime.UTC(),
				Status:      models.GameStatusScheduled,
			},
			Snapshot: snapshot,
		})
	}

	return result
}

// extractMarkets fills market fields across bookmakers in provider order.
// Each field keeps the earliest book that prices it, so a book missing one
// side of a market does not block later books from completing it.
func extractMarkets(snap *models.OddsSnapshot, event *providerEvent) {
	for _, book := range event.Bookmakers {
		for _, market := range book.Markets {
			switch market.Key {
			case "h2h":
				for _, outcome := range market.Outcomes {
					price := outcome.Price
					switch outcome.Name {
					case event.HomeTeam:
						if snap.MoneylineHome == nil {
							snap.MoneylineHome = &price
						}
					case event.AwayTeam:
						if snap.MoneylineAway == nil {
							snap.MoneylineAway = &price
						}
					}
				}
			case "totals":
				if snap.Total != nil {
					continue
				}
				for _, outcome := range market.Outcomes {
					if outcome.Name == "Over" && outcome.Point != nil {
						point := *outcome.Point
						snap.Total = &point
					}
				}
			case "spreads":
				for _, outcome := range market.Outcomes {
					price := outcome.Price
					if price == 0 {
						price = defaultSpreadPrice
					}
					switch outcome.Name {
					case event.HomeTeam:
						if outcome.Point != nil && snap.SpreadHome == nil {
							point := *outcome.Point
							snap.SpreadHome = &point
						}
						if snap.SpreadHomeOdds == nil {
							snap.SpreadHomeOdds = &price
						}
					case event.AwayTeam:
						if snap.SpreadAwayOdds == nil {
							snap.SpreadAwayOdds = &price
						}
					}
				}
			}
		}
	}
}
