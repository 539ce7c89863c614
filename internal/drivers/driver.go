// Package drivers holds the per-sport analytical drivers that turn an odds
// snapshot into card descriptors. A driver owns one card type; the fan-out
// service turns descriptors into stored cards.
package drivers

import (
	"math"

	"github.com/yourusername/edgecard/internal/models"
)

// Descriptor is one driver's computed signal for a game
type Descriptor struct {
	Key               string
	CardType          string
	CardTitle         string
	Market            string
	Prediction        string
	Confidence        float64
	Reasoning         string
	Score             float64
	EVThresholdPassed bool
	Inputs            map[string]float64
	Status            string
	Weight            float64
}

// Driver computes a descriptor for one game from its latest odds snapshot.
// Compute returns nil when required inputs are missing; such drivers are
// skipped, never emitted as NEUTRAL.
type Driver interface {
	Key() string
	CardType() string
	Weight() float64
	Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor
}

// boundedConfidence maps a driver's signal strength |score-0.5| into the
// driver's own confidence range. There is no global baseline confidence.
func boundedConfidence(score, lo, hi float64) float64 {
	return clamp(lo+math.Abs(score-0.5)*2*(hi-lo), lo, hi)
}

// directConfidence is for fragility-style drivers where a high score is
// itself the meaningful signal.
func directConfidence(score, lo, hi float64) float64 {
	return clamp(score, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sideFromScore converts a home-probability style score to a side
// prediction, with a dead zone of +-margin around the coin flip.
func sideFromScore(score, margin float64) string {
	switch {
	case score > 0.5+margin:
		return models.PredictionHome
	case score < 0.5-margin:
		return models.PredictionAway
	default:
		return models.PredictionNeutral
	}
}

// totalFromScore converts an over-leaning score to a totals prediction
func totalFromScore(score, margin float64) string {
	switch {
	case score > 0.5+margin:
		return models.PredictionOver
	case score < 0.5-margin:
		return models.PredictionUnder
	default:
		return models.PredictionNeutral
	}
}

// CompositeDirection derives a sport-level direction from the weighted sum
// of driver scores. Never derived from raw provider odds.
func CompositeDirection(descriptors []*Descriptor) string {
	var weightedSum, totalWeight float64
	for _, d := range descriptors {
		if d.Market != models.MarketMoneyline {
			continue
		}
		weightedSum += d.Score * d.Weight
		totalWeight += d.Weight
	}
	if totalWeight == 0 {
		return models.PredictionNeutral
	}

	composite := weightedSum / totalWeight
	switch {
	case composite > 0.5:
		return models.PredictionHome
	case composite < 0.5:
		return models.PredictionAway
	default:
		return models.PredictionNeutral
	}
}

// RecommendationFor maps a descriptor's prediction and market to the
// authoritative recommendation type. NEUTRAL and PASS map to PASS.
func RecommendationFor(d *Descriptor) string {
	switch d.Prediction {
	case models.PredictionHome:
		if d.Market == models.MarketSpread {
			return models.RecommendationSpreadHome
		}
		return models.RecommendationMLHome
	case models.PredictionAway:
		if d.Market == models.MarketSpread {
			return models.RecommendationSpreadAway
		}
		return models.RecommendationMLAway
	case models.PredictionOver:
		return models.RecommendationTotalOver
	case models.PredictionUnder:
		return models.RecommendationTotalUnder
	default:
		return models.RecommendationPass
	}
}
