// Package settlement grades pending card results against final game
// results and maintains the rolling tracking stats.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/edgecard/internal/models"
)

// defaultJuice is the price used when odds_context carries no explicit
// price for the graded side (standard -110).
const defaultJuice = -110.0

// Play is the resolved bet a card actually represents
type Play struct {
	Market    string
	Direction string
}

// ExtractActualPlay resolves the authoritative bet direction from a card's
// payload. The recommendation object wins; a missing recommendation falls
// back to the legacy prediction + recommended_bet_type pair. PASS and
// NEUTRAL cards are not plays and return ok=false.
func ExtractActualPlay(pd *models.PayloadData) (Play, bool) {
	if pd.Recommendation != nil {
		if pd.Recommendation.Type == models.RecommendationPass {
			return Play{}, false
		}
		if market, direction, ok := models.RecommendationPlay(pd.Recommendation.Type); ok {
			return Play{Market: market, Direction: direction}, true
		}
		return Play{}, false
	}

	return legacyPlay(pd.Prediction, pd.RecommendedBetType)
}

func legacyPlay(prediction, betType string) (Play, bool) {
	switch prediction {
	case models.PredictionNeutral, models.PredictionPass, "":
		return Play{}, false
	case models.PredictionOver:
		return Play{Market: models.MarketTotal, Direction: models.DirectionOver}, true
	case models.PredictionUnder:
		return Play{Market: models.MarketTotal, Direction: models.DirectionUnder}, true
	}

	direction := models.DirectionHome
	if prediction == models.PredictionAway {
		direction = models.DirectionAway
	}
	if betType == models.MarketSpread {
		return Play{Market: models.MarketSpread, Direction: direction}, true
	}
	return Play{Market: models.MarketMoneyline, Direction: direction}, true
}

// PickBetOdds resolves the american price used to grade the play from the
// card's odds_context. Moneyline requires an explicit price; spread and
// total fall back to standard juice.
func PickBetOdds(oc *models.OddsContext, play Play) (float64, bool) {
	switch play.Market {
	case models.MarketMoneyline:
		if play.Direction == models.DirectionHome {
			if oc.H2HHome == nil {
				return 0, false
			}
			return *oc.H2HHome, true
		}
		if oc.H2HAway == nil {
			return 0, false
		}
		return *oc.H2HAway, true

	case models.MarketSpread:
		if play.Direction == models.DirectionHome && oc.SpreadHomeOdds != nil {
			return *oc.SpreadHomeOdds, true
		}
		if play.Direction == models.DirectionAway && oc.SpreadAwayOdds != nil {
			return *oc.SpreadAwayOdds, true
		}
		return defaultJuice, true

	case models.MarketTotal:
		return defaultJuice, true
	}

	return 0, false
}

// Grade resolves win/loss/push for a play against the final score
func Grade(oc *models.OddsContext, play Play, finalHome, finalAway int) (string, bool) {
	switch play.Market {
	case models.MarketMoneyline:
		if finalHome == finalAway {
			return models.ResultPush, true
		}
		homeWon := finalHome > finalAway
		if (play.Direction == models.DirectionHome) == homeWon {
			return models.ResultWin, true
		}
		return models.ResultLoss, true

	case models.MarketSpread:
		if oc.SpreadHome == nil {
			return "", false
		}
		adjusted := float64(finalHome) + *oc.SpreadHome
		if adjusted == float64(finalAway) {
			return models.ResultPush, true
		}
		homeCovered := adjusted > float64(finalAway)
		if (play.Direction == models.DirectionHome) == homeCovered {
			return models.ResultWin, true
		}
		return models.ResultLoss, true

	case models.MarketTotal:
		if oc.Total == nil {
			return "", false
		}
		combined := float64(finalHome + finalAway)
		if combined == *oc.Total {
			return models.ResultPush, true
		}
		wentOver := combined > *oc.Total
		if (play.Direction == models.DirectionOver) == wentOver {
			return models.ResultWin, true
		}
		return models.ResultLoss, true
	}

	return "", false
}

// ToUnits converts an american price to the profit on a winning 1-unit
// stake: -110 pays +0.909, +100 pays +1.000.
func ToUnits(american float64) decimal.Decimal {
	odds := decimal.NewFromFloat(american)
	if american < 0 {
		return decimal.NewFromInt(100).DivRound(odds.Abs(), 3)
	}
	return odds.DivRound(decimal.NewFromInt(100), 3)
}

// PnLUnits computes the signed profit at a 1-unit stake for a graded result
func PnLUnits(result string, american float64) decimal.Decimal {
	switch result {
	case models.ResultWin:
		return ToUnits(american)
	case models.ResultLoss:
		return decimal.NewFromInt(-1)
	default:
		return decimal.Zero
	}
}
