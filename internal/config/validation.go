// Package config provides configuration management for the EdgeCard pipeline.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	fixedWindowPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	monthDayPattern    = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)
	sportKeyPattern    = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("sportkey", validateSportKey)
	v.RegisterValidation("fixedwindow", validateFixedWindow)
	v.RegisterValidation("monthday", validateMonthDay)
	v.RegisterValidation("timezone_name", validateTimezone)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
		return true
	default:
		return false
	}
}

func validateSportKey(fl validator.FieldLevel) bool {
	return sportKeyPattern.MatchString(fl.Field().String())
}

func validateFixedWindow(fl validator.FieldLevel) bool {
	return fixedWindowPattern.MatchString(fl.Field().String())
}

func validateMonthDay(fl validator.FieldLevel) bool {
	return monthDayPattern.MatchString(fl.Field().String())
}

func validateTimezone(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// validateCrossField applies checks that span multiple fields
func validateCrossField(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Sports))
	for _, s := range cfg.Sports {
		if seen[s.Key] {
			return fmt.Errorf("duplicate sport key: %s", s.Key)
		}
		seen[s.Key] = true

		if (s.SeasonStart == "") != (s.SeasonEnd == "") {
			return fmt.Errorf("sport %s: season_start and season_end must be set together", s.Key)
		}
		for _, center := range s.TMinusWindows {
			if center <= cfg.Scheduler.ToleranceMinutes {
				return fmt.Errorf("sport %s: tminus window %d is inside the tolerance band", s.Key, center)
			}
		}
	}

	if cfg.Settlement.VoidAfterHours*60 < cfg.Settlement.PostGameDelayMin {
		return fmt.Errorf("settlement void_after_hours must exceed post_game_delay_minutes")
	}

	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	msg := "configuration validation failed:"
	for _, e := range errs {
		msg += fmt.Sprintf("\n  %s: failed on '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%s", msg)
}
