package drivers

import (
	"fmt"
	"math"

	"github.com/yourusername/edgecard/internal/models"
)

// nbaBaselineTotal is the league-average points line the pace driver
// compares against.
const nbaBaselineTotal = 225.0

// NBADrivers returns the NBA driver set in evaluation order
func NBADrivers() []Driver {
	return []Driver{
		&nbaRestAdvantageDriver{},
		&nbaPaceTotalDriver{},
	}
}

type nbaRestAdvantageDriver struct{}

func (d *nbaRestAdvantageDriver) Key() string      { return "nba-rest-advantage" }
func (d *nbaRestAdvantageDriver) CardType() string { return "nba-rest-advantage" }
func (d *nbaRestAdvantageDriver) Weight() float64  { return 0.55 }

func (d *nbaRestAdvantageDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if !snap.HasMoneyline() || snap.SpreadHome == nil {
		return nil
	}

	// Spread drift past the pure moneyline lean is the rest/schedule proxy:
	// books shade tired legs into the spread before the moneyline.
	implied := snap.ImpliedHomeProbability()
	spreadLean := clamp(0.5-*snap.SpreadHome*0.025, 0, 1)
	score := clamp(implied*0.5+spreadLean*0.5, 0, 1)
	prediction := sideFromScore(score, 0.05)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Rest Advantage: %s", pickTeam(game, prediction)),
		Market:     models.MarketMoneyline,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.45, 0.80),
		Reasoning: fmt.Sprintf("Spread of %+.1f against %.0f%% implied leans the schedule spot toward %s.",
			*snap.SpreadHome, implied*100, pickTeam(game, prediction)),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.07,
		Inputs: map[string]float64{
			"implied_home_prob": implied,
			"spread_home":       *snap.SpreadHome,
			"spread_lean":       spreadLean,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}

type nbaPaceTotalDriver struct{}

func (d *nbaPaceTotalDriver) Key() string      { return "nba-pace-total" }
func (d *nbaPaceTotalDriver) CardType() string { return "nba-pace-total" }
func (d *nbaPaceTotalDriver) Weight() float64  { return 0.45 }

func (d *nbaPaceTotalDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if snap.Total == nil {
		return nil
	}

	score := clamp(0.5+(*snap.Total-nbaBaselineTotal)/40, 0, 1)
	prediction := totalFromScore(score, 0.05)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Pace Read: %s %.1f", prediction, *snap.Total),
		Market:     models.MarketTotal,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.45, 0.75),
		Reasoning: fmt.Sprintf("Line of %.1f versus a %.0f baseline prices this as a %s-pace game.",
			*snap.Total, nbaBaselineTotal, map[bool]string{true: "high", false: "low"}[score >= 0.5]),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.08,
		Inputs: map[string]float64{
			"total":          *snap.Total,
			"baseline_total": nbaBaselineTotal,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}
