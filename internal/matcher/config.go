package matcher

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingConfig holds the thresholds governing payment matching
type MatchingConfig struct {
	// TimeWindowMinutes is how long after request creation an email may
	// arrive and still match
	TimeWindowMinutes int `json:"time_window_minutes"`

	// AmountTolerance is the largest absolute difference still treated
	// as the same amount
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// LargeMismatchCeiling rejects a name-matched payment outright when
	// the shortfall reaches this amount
	LargeMismatchCeiling decimal.Decimal `json:"large_mismatch_ceiling"`

	// NameSimilarityThreshold is the minimum similarity percentage to
	// treat two names as the same payer
	NameSimilarityThreshold float64 `json:"name_similarity_threshold"`

	// MinimumAmount is the smallest transfer worth matching at all
	MinimumAmount decimal.Decimal `json:"minimum_amount"`

	// DuplicateWindow is how far back to look for an already approved
	// payment with the same amount and payer
	DuplicateWindow time.Duration `json:"duplicate_window"`

	// Timezone interprets bank timestamps that carry no offset
	Timezone string `json:"timezone"`
}

// DefaultMatchingConfig returns the thresholds used in production
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		TimeWindowMinutes:       120,
		AmountTolerance:         decimal.RequireFromString("0.01"),
		LargeMismatchCeiling:    decimal.NewFromInt(5000),
		NameSimilarityThreshold: 65,
		MinimumAmount:           decimal.NewFromInt(10),
		DuplicateWindow:         time.Hour,
		Timezone:                "Africa/Lagos",
	}
}

// StrictMatchingConfig returns a configuration that only approves exact
// amounts with strong name evidence
func StrictMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		TimeWindowMinutes:       30,
		AmountTolerance:         decimal.Zero,
		LargeMismatchCeiling:    decimal.Zero,
		NameSimilarityThreshold: 90,
		MinimumAmount:           decimal.NewFromInt(10),
		DuplicateWindow:         time.Hour,
		Timezone:                "Africa/Lagos",
	}
}

// Validate checks the configuration for consistency
func (c *MatchingConfig) Validate() error {
	if c.TimeWindowMinutes <= 0 {
		return fmt.Errorf("time window must be positive, got %d", c.TimeWindowMinutes)
	}
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative, got %s", c.AmountTolerance)
	}
	if c.LargeMismatchCeiling.IsNegative() {
		return fmt.Errorf("large mismatch ceiling cannot be negative, got %s", c.LargeMismatchCeiling)
	}
	if c.NameSimilarityThreshold < 0 || c.NameSimilarityThreshold > 100 {
		return fmt.Errorf("name similarity threshold must be between 0 and 100, got %v", c.NameSimilarityThreshold)
	}
	if c.MinimumAmount.IsNegative() {
		return fmt.Errorf("minimum amount cannot be negative, got %s", c.MinimumAmount)
	}
	if c.DuplicateWindow < 0 {
		return fmt.Errorf("duplicate window cannot be negative, got %v", c.DuplicateWindow)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Clone returns a deep copy of the configuration
func (c *MatchingConfig) Clone() *MatchingConfig {
	clone := *c
	return &clone
}

// Location returns the configured timezone, falling back to UTC when the
// name cannot be loaded
func (c *MatchingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
