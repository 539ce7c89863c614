package drivers

import (
	"fmt"
	"math"

	"github.com/yourusername/edgecard/internal/models"
)

// nhlBaselineTotal is the league-average goals line the totals drivers
// compare against.
const nhlBaselineTotal = 6.0

// NHLDrivers returns the NHL driver set in evaluation order
func NHLDrivers() []Driver {
	return []Driver{
		&nhlGoalieDriver{},
		&nhlSpecialTeamsDriver{},
		&nhlShotEnvironmentDriver{},
		&nhlEmptyNetDriver{},
		&nhlTotalFragilityDriver{},
	}
}

// pickTeam returns the team name the prediction points at
func pickTeam(game *models.Game, prediction string) string {
	if prediction == models.PredictionAway {
		return game.AwayTeam
	}
	return game.HomeTeam
}

type nhlGoalieDriver struct{}

func (d *nhlGoalieDriver) Key() string      { return "nhl-goalie" }
func (d *nhlGoalieDriver) CardType() string { return "nhl-goalie" }
func (d *nhlGoalieDriver) Weight() float64  { return 0.30 }

func (d *nhlGoalieDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if !snap.HasMoneyline() {
		return nil
	}

	score := snap.ImpliedHomeProbability()
	prediction := sideFromScore(score, 0.05)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Goalie Edge: %s", pickTeam(game, prediction)),
		Market:     models.MarketMoneyline,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.50, 0.85),
		Reasoning: fmt.Sprintf("Market prices %s at %.0f%% implied; goalie matchup tilts the crease battle.",
			pickTeam(game, prediction), score*100),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.08,
		Inputs: map[string]float64{
			"moneyline_home":    *snap.MoneylineHome,
			"moneyline_away":    *snap.MoneylineAway,
			"implied_home_prob": score,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}

type nhlSpecialTeamsDriver struct{}

func (d *nhlSpecialTeamsDriver) Key() string      { return "nhl-special-teams" }
func (d *nhlSpecialTeamsDriver) CardType() string { return "nhl-special-teams" }
func (d *nhlSpecialTeamsDriver) Weight() float64  { return 0.20 }

func (d *nhlSpecialTeamsDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if !snap.HasMoneyline() || snap.SpreadHome == nil {
		return nil
	}

	// Puck-line magnitude is the special-teams leverage proxy: a steeper
	// home spread implies the home power play travels better.
	score := clamp(0.5-*snap.SpreadHome*0.12, 0, 1)
	prediction := sideFromScore(score, 0.06)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Special Teams: %s", pickTeam(game, prediction)),
		Market:     models.MarketMoneyline,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.45, 0.75),
		Reasoning: fmt.Sprintf("Puck line of %+.1f points to a special-teams edge for %s.",
			*snap.SpreadHome, pickTeam(game, prediction)),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.10,
		Inputs: map[string]float64{
			"spread_home":       *snap.SpreadHome,
			"implied_home_prob": snap.ImpliedHomeProbability(),
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}

type nhlShotEnvironmentDriver struct{}

func (d *nhlShotEnvironmentDriver) Key() string      { return "nhl-shot-environment" }
func (d *nhlShotEnvironmentDriver) CardType() string { return "nhl-shot-environment" }
func (d *nhlShotEnvironmentDriver) Weight() float64  { return 0.15 }

func (d *nhlShotEnvironmentDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if snap.Total == nil {
		return nil
	}

	score := clamp(0.5+(*snap.Total-nhlBaselineTotal)*0.15, 0, 1)
	prediction := totalFromScore(score, 0.05)

	direction := "flat"
	if prediction == models.PredictionOver {
		direction = "lively"
	} else if prediction == models.PredictionUnder {
		direction = "suppressed"
	}

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Shot Environment: %s %.1f", prediction, *snap.Total),
		Market:     models.MarketTotal,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.45, 0.70),
		Reasoning: fmt.Sprintf("Total of %.1f against a %.1f baseline signals a %s shot environment.",
			*snap.Total, nhlBaselineTotal, direction),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.08,
		Inputs: map[string]float64{
			"total":          *snap.Total,
			"baseline_total": nhlBaselineTotal,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}

type nhlEmptyNetDriver struct{}

func (d *nhlEmptyNetDriver) Key() string      { return "nhl-empty-net" }
func (d *nhlEmptyNetDriver) CardType() string { return "nhl-empty-net" }
func (d *nhlEmptyNetDriver) Weight() float64  { return 0.15 }

func (d *nhlEmptyNetDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if !snap.HasMoneyline() {
		return nil
	}

	// Favorites bank empty-net goals late; amplify the market lean.
	implied := snap.ImpliedHomeProbability()
	score := clamp(0.5+(implied-0.5)*1.3, 0, 1)
	prediction := sideFromScore(score, 0.08)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Empty Net Value: %s", pickTeam(game, prediction)),
		Market:     models.MarketMoneyline,
		Prediction: prediction,
		Confidence: boundedConfidence(score, 0.40, 0.70),
		Reasoning: fmt.Sprintf("%s closes games with the extra attacker against them %.0f%% of the time by market lean.",
			pickTeam(game, prediction), score*100),
		Score:             score,
		EVThresholdPassed: math.Abs(score-0.5) >= 0.12,
		Inputs: map[string]float64{
			"implied_home_prob": implied,
			"amplified_score":   score,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}

type nhlTotalFragilityDriver struct{}

func (d *nhlTotalFragilityDriver) Key() string      { return "nhl-total-fragility" }
func (d *nhlTotalFragilityDriver) CardType() string { return "nhl-total-fragility" }
func (d *nhlTotalFragilityDriver) Weight() float64  { return 0.20 }

// Compute flags games where the total line is fragile: evenly matched
// teams on an extreme line. Always emits NEUTRAL; the score itself is the
// signal and feeds confidence directly.
func (d *nhlTotalFragilityDriver) Compute(game *models.Game, snap *models.OddsSnapshot) *Descriptor {
	if snap.Total == nil || !snap.HasMoneyline() {
		return nil
	}

	implied := snap.ImpliedHomeProbability()
	matchupTightness := 1 - 2*math.Abs(implied-0.5)
	lineExtremity := clamp(math.Abs(*snap.Total-nhlBaselineTotal)/1.5, 0, 1)
	score := clamp(matchupTightness*0.6+lineExtremity*0.4, 0, 1)

	return &Descriptor{
		Key:        d.Key(),
		CardType:   d.CardType(),
		CardTitle:  fmt.Sprintf("Total Fragility Watch: %s @ %s", game.AwayTeam, game.HomeTeam),
		Market:     models.MarketTotal,
		Prediction: models.PredictionNeutral,
		Confidence: directConfidence(score, 0.30, 0.70),
		Reasoning: fmt.Sprintf("Tight matchup (%.0f%% home) on a %.1f line; the total is fragile to one bounce.",
			implied*100, *snap.Total),
		Score:             score,
		EVThresholdPassed: false,
		Inputs: map[string]float64{
			"total":             *snap.Total,
			"implied_home_prob": implied,
			"matchup_tightness": matchupTightness,
			"line_extremity":    lineExtremity,
		},
		Status: models.DriverStatusOK,
		Weight: d.Weight(),
	}
}
