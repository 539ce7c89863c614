package drivers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edgecard/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func testGame() *models.Game {
	return &models.Game{
		GameID:      "game-nhl-abc123",
		Sport:       "nhl",
		HomeTeam:    "Boston Bruins",
		AwayTeam:    "New York Rangers",
		GameTimeUTC: time.Now().UTC().Add(6 * time.Hour),
	}
}

func fullSnapshot() *models.OddsSnapshot {
	return &models.OddsSnapshot{
		GameID:         "game-nhl-abc123",
		CapturedAt:     time.Now().UTC(),
		MoneylineHome:  floatPtr(-160),
		MoneylineAway:  floatPtr(140),
		Total:          floatPtr(6.5),
		SpreadHome:     floatPtr(-1.5),
		SpreadHomeOdds: floatPtr(-180),
		SpreadAwayOdds: floatPtr(150),
	}
}

func TestNHLDriversFullSnapshot(t *testing.T) {
	game := testGame()
	snap := fullSnapshot()

	var descriptors []*Descriptor
	for _, driver := range NHLDrivers() {
		if desc := driver.Compute(game, snap); desc != nil {
			descriptors = append(descriptors, desc)
		}
	}

	require.Len(t, descriptors, 5)
	for _, desc := range descriptors {
		assert.Equal(t, models.DriverStatusOK, desc.Status, desc.Key)
		assert.GreaterOrEqual(t, desc.Confidence, 0.0, desc.Key)
		assert.LessOrEqual(t, desc.Confidence, 1.0, desc.Key)
		assert.NotEmpty(t, desc.CardTitle, desc.Key)
		assert.NotEmpty(t, desc.Reasoning, desc.Key)
		assert.NotEmpty(t, desc.Inputs, desc.Key)
	}
}

func TestDriversSkipOnMissingInputs(t *testing.T) {
	game := testGame()
	bare := &models.OddsSnapshot{GameID: game.GameID, CapturedAt: time.Now().UTC()}

	for _, driver := range NHLDrivers() {
		assert.Nil(t, driver.Compute(game, bare), driver.Key())
	}
	for _, driver := range NBADrivers() {
		assert.Nil(t, driver.Compute(game, bare), driver.Key())
	}
}

func TestGoalieDriverDirection(t *testing.T) {
	game := testGame()
	driver := &nhlGoalieDriver{}

	homeFav := &models.OddsSnapshot{MoneylineHome: floatPtr(-200), MoneylineAway: floatPtr(170)}
	desc := driver.Compute(game, homeFav)
	require.NotNil(t, desc)
	assert.Equal(t, models.PredictionHome, desc.Prediction)
	assert.Contains(t, desc.CardTitle, "Boston Bruins")

	awayFav := &models.OddsSnapshot{MoneylineHome: floatPtr(170), MoneylineAway: floatPtr(-200)}
	desc = driver.Compute(game, awayFav)
	require.NotNil(t, desc)
	assert.Equal(t, models.PredictionAway, desc.Prediction)
	assert.Contains(t, desc.CardTitle, "New York Rangers")

	coinFlip := &models.OddsSnapshot{MoneylineHome: floatPtr(-105), MoneylineAway: floatPtr(-105)}
	desc = driver.Compute(game, coinFlip)
	require.NotNil(t, desc)
	assert.Equal(t, models.PredictionNeutral, desc.Prediction)
}

func TestConfidenceDifferentiatesBySignalStrength(t *testing.T) {
	game := testGame()
	driver := &nhlGoalieDriver{}

	strong := driver.Compute(game, &models.OddsSnapshot{MoneylineHome: floatPtr(-300), MoneylineAway: floatPtr(250)})
	weak := driver.Compute(game, &models.OddsSnapshot{MoneylineHome: floatPtr(-120), MoneylineAway: floatPtr(100)})

	require.NotNil(t, strong)
	require.NotNil(t, weak)
	assert.Greater(t, strong.Confidence, weak.Confidence)
	assert.True(t, strong.EVThresholdPassed)
	assert.False(t, weak.EVThresholdPassed)
}

func TestFragilityAlwaysNeutral(t *testing.T) {
	game := testGame()
	driver := &nhlTotalFragilityDriver{}

	snaps := []*models.OddsSnapshot{
		{Total: floatPtr(5.0), MoneylineHome: floatPtr(-105), MoneylineAway: floatPtr(-105)},
		{Total: floatPtr(7.5), MoneylineHome: floatPtr(-300), MoneylineAway: floatPtr(250)},
		fullSnapshot(),
	}

	for _, snap := range snaps {
		desc := driver.Compute(game, snap)
		require.NotNil(t, desc)
		assert.Equal(t, models.PredictionNeutral, desc.Prediction)
		assert.Equal(t, desc.Confidence, clamp(desc.Score, 0.30, 0.70))
	}
}

func TestFragilityScoresTightMatchupHigher(t *testing.T) {
	game := testGame()
	driver := &nhlTotalFragilityDriver{}

	tight := driver.Compute(game, &models.OddsSnapshot{
		Total: floatPtr(6.0), MoneylineHome: floatPtr(-105), MoneylineAway: floatPtr(-105),
	})
	lopsided := driver.Compute(game, &models.OddsSnapshot{
		Total: floatPtr(6.0), MoneylineHome: floatPtr(-400), MoneylineAway: floatPtr(320),
	})

	require.NotNil(t, tight)
	require.NotNil(t, lopsided)
	assert.Greater(t, tight.Score, lopsided.Score)
}

func TestPaceTotalPredictions(t *testing.T) {
	game := &models.Game{GameID: "game-nba-x", Sport: "nba", HomeTeam: "Boston Celtics", AwayTeam: "New York Knicks"}
	driver := &nbaPaceTotalDriver{}

	over := driver.Compute(game, &models.OddsSnapshot{Total: floatPtr(238)})
	require.NotNil(t, over)
	assert.Equal(t, models.PredictionOver, over.Prediction)

	under := driver.Compute(game, &models.OddsSnapshot{Total: floatPtr(212)})
	require.NotNil(t, under)
	assert.Equal(t, models.PredictionUnder, under.Prediction)

	flat := driver.Compute(game, &models.OddsSnapshot{Total: floatPtr(225)})
	require.NotNil(t, flat)
	assert.Equal(t, models.PredictionNeutral, flat.Prediction)
}

func TestCompositeDirection(t *testing.T) {
	home := []*Descriptor{
		{Market: models.MarketMoneyline, Score: 0.7, Weight: 0.6},
		{Market: models.MarketMoneyline, Score: 0.4, Weight: 0.2},
		{Market: models.MarketTotal, Score: 0.1, Weight: 0.9},
	}
	assert.Equal(t, models.PredictionHome, CompositeDirection(home))

	away := []*Descriptor{
		{Market: models.MarketMoneyline, Score: 0.3, Weight: 0.5},
		{Market: models.MarketMoneyline, Score: 0.45, Weight: 0.5},
	}
	assert.Equal(t, models.PredictionAway, CompositeDirection(away))

	assert.Equal(t, models.PredictionNeutral, CompositeDirection(nil))
	assert.Equal(t, models.PredictionNeutral, CompositeDirection([]*Descriptor{
		{Market: models.MarketMoneyline, Score: 0.5, Weight: 1},
	}))
}

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		prediction string
		market     string
		want       string
	}{
		{models.PredictionHome, models.MarketMoneyline, models.RecommendationMLHome},
		{models.PredictionAway, models.MarketMoneyline, models.RecommendationMLAway},
		{models.PredictionHome, models.MarketSpread, models.RecommendationSpreadHome},
		{models.PredictionAway, models.MarketSpread, models.RecommendationSpreadAway},
		{models.PredictionOver, models.MarketTotal, models.RecommendationTotalOver},
		{models.PredictionUnder, models.MarketTotal, models.RecommendationTotalUnder},
		{models.PredictionNeutral, models.MarketTotal, models.RecommendationPass},
		{models.PredictionPass, models.MarketMoneyline, models.RecommendationPass},
	}

	for _, tt := range tests {
		got := RecommendationFor(&Descriptor{Prediction: tt.prediction, Market: tt.market})
		assert.Equal(t, tt.want, got)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	assert.Len(t, registry.ForSport("nhl"), 5)
	assert.Len(t, registry.ForSport("nba"), 2)
	assert.Nil(t, registry.ForSport("cricket"))
	assert.ElementsMatch(t, []string{"nhl", "nba"}, registry.Sports())
}
