// Package cards owns the card-type schema registry. Insertion of a card
// payload fails fast against the registered validator for its card_type
// without the caller knowing the schema.
package cards

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/edgecard/internal/models"
)

// Validator performs card-type specific checks beyond the shared payload
// structure.
type Validator func(pd *models.PayloadData) error

// Registry maps card_type slugs to payload validators.
type Registry struct {
	validators map[string]Validator
	structv    *validator.Validate
}

// NewRegistry creates a registry with the built-in card types registered.
func NewRegistry() *Registry {
	r := &Registry{
		validators: make(map[string]Validator),
		structv:    validator.New(),
	}

	r.Register("nhl-goalie", requireMoneylineContext)
	r.Register("nhl-special-teams", requireMoneylineContext)
	r.Register("nhl-shot-environment", requireTotalContext)
	r.Register("nhl-empty-net", requireMoneylineContext)
	r.Register("nhl-total-fragility", requireNeutralTotal)
	r.Register("nba-rest-advantage", requireMoneylineContext)
	r.Register("nba-pace-total", requireTotalContext)

	return r
}

// Register adds or replaces the validator for a card type.
func (r *Registry) Register(cardType string, fn Validator) {
	r.validators[cardType] = fn
}

// Known reports whether a card type has a registered validator.
func (r *Registry) Known(cardType string) bool {
	_, ok := r.validators[cardType]
	return ok
}

// Validate checks serialized payload_data against the card type's schema.
// Failures are models.ValidationError so the caller can fail that card only.
func (r *Registry) Validate(cardType string, raw json.RawMessage) error {
	fn, ok := r.validators[cardType]
	if !ok {
		return models.NewValidationError("unknown_card_type",
			fmt.Sprintf("no validator registered for card_type %q", cardType))
	}

	if len(raw) == 0 {
		return models.NewValidationError("empty_payload", "payload_data is empty")
	}

	var pd models.PayloadData
	if err := json.Unmarshal(raw, &pd); err != nil {
		return models.NewValidationError("malformed_payload", err.Error())
	}

	if err := r.structv.Struct(&pd); err != nil {
		return models.NewValidationError("invalid_payload", err.Error())
	}

	if pd.Recommendation != nil {
		if _, _, ok := models.RecommendationPlay(pd.Recommendation.Type); !ok && pd.Recommendation.Type != models.RecommendationPass {
			return models.NewValidationError("invalid_recommendation",
				fmt.Sprintf("unknown recommendation type %q", pd.Recommendation.Type))
		}
	}

	return fn(&pd)
}

// requireMoneylineContext enforces graded moneyline fields in odds_context.
func requireMoneylineContext(pd *models.PayloadData) error {
	if pd.OddsContext.H2HHome == nil || pd.OddsContext.H2HAway == nil {
		return models.NewValidationError("missing_odds_context",
			"moneyline card requires h2h_home and h2h_away in odds_context")
	}
	return nil
}

// requireTotalContext enforces a graded total line in odds_context.
func requireTotalContext(pd *models.PayloadData) error {
	if pd.OddsContext.Total == nil {
		return models.NewValidationError("missing_odds_context",
			"total card requires total in odds_context")
	}
	return nil
}

// requireNeutralTotal is the fragility contract: always NEUTRAL, and the
// total line must still be present so the card validates.
func requireNeutralTotal(pd *models.PayloadData) error {
	if pd.Prediction != models.PredictionNeutral {
		return models.NewValidationError("fragility_not_neutral",
			fmt.Sprintf("fragility cards must predict NEUTRAL, got %q", pd.Prediction))
	}
	return requireTotalContext(pd)
}
