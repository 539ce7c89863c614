package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/edgecard/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func validPayload() models.PayloadData {
	return models.PayloadData{
		Prediction: models.PredictionHome,
		Confidence: 0.7,
		Reasoning:  "home goalie edge",
		OddsContext: models.OddsContext{
			H2HHome: floatPtr(-150),
			H2HAway: floatPtr(130),
			Total:   floatPtr(6.0),
		},
		Recommendation: &models.Recommendation{Type: models.RecommendationMLHome},
		Meta:           models.CardMeta{InferenceSource: "driver", IsMock: false},
	}
}

func marshal(t *testing.T, pd models.PayloadData) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(pd)
	require.NoError(t, err)
	return raw
}

func TestValidateKnownType(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Validate("nhl-goalie", marshal(t, validPayload())))
}

func TestValidateUnknownType(t *testing.T) {
	r := NewRegistry()
	err := r.Validate("nhl-zamboni", marshal(t, validPayload()))
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
}

func TestValidateMissingMoneylineContext(t *testing.T) {
	r := NewRegistry()
	pd := validPayload()
	pd.OddsContext.H2HAway = nil

	err := r.Validate("nhl-goalie", marshal(t, pd))
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
}

func TestValidateFragilityMustBeNeutral(t *testing.T) {
	r := NewRegistry()
	pd := validPayload()
	pd.Prediction = models.PredictionOver
	pd.Recommendation = &models.Recommendation{Type: models.RecommendationPass}

	err := r.Validate("nhl-total-fragility", marshal(t, pd))
	require.Error(t, err)

	pd.Prediction = models.PredictionNeutral
	assert.NoError(t, r.Validate("nhl-total-fragility", marshal(t, pd)))
}

func TestValidateTotalCardRequiresTotal(t *testing.T) {
	r := NewRegistry()
	pd := validPayload()
	pd.Prediction = models.PredictionOver
	pd.Recommendation = &models.Recommendation{Type: models.RecommendationTotalOver}
	pd.OddsContext.Total = nil

	err := r.Validate("nhl-shot-environment", marshal(t, pd))
	require.Error(t, err)
}

func TestValidateRejectsBogusRecommendation(t *testing.T) {
	r := NewRegistry()
	pd := validPayload()
	pd.Recommendation = &models.Recommendation{Type: "ML_BOTH"}

	err := r.Validate("nhl-goalie", marshal(t, pd))
	require.Error(t, err)
}

func TestValidateEmptyPayload(t *testing.T) {
	r := NewRegistry()
	err := r.Validate("nhl-goalie", nil)
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))
}
