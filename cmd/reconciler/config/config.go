// Package config builds component configurations from CLI inputs
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"email-payment-reconciler/internal/matcher"
	"email-payment-reconciler/pkg/logger"
)

// MatchingOverrides carries the CLI flags that tune matching behavior.
// Zero values leave the defaults in place.
type MatchingOverrides struct {
	TimeWindowMinutes   int
	AmountTolerance     float64
	NameThreshold       float64
	MismatchCeiling     float64
	DuplicateWindowMins int
	Timezone            string
	Strict              bool
}

// CreateMatchingConfig builds a matching configuration from defaults plus
// CLI overrides
func CreateMatchingConfig(overrides MatchingOverrides) (*matcher.MatchingConfig, error) {
	var config *matcher.MatchingConfig
	if overrides.Strict {
		config = matcher.StrictMatchingConfig()
	} else {
		config = matcher.DefaultMatchingConfig()
	}

	if overrides.TimeWindowMinutes > 0 {
		config.TimeWindowMinutes = overrides.TimeWindowMinutes
	}
	if overrides.AmountTolerance > 0 {
		config.AmountTolerance = decimal.NewFromFloat(overrides.AmountTolerance)
	}
	if overrides.NameThreshold > 0 {
		config.NameSimilarityThreshold = overrides.NameThreshold
	}
	if overrides.MismatchCeiling > 0 {
		config.LargeMismatchCeiling = decimal.NewFromFloat(overrides.MismatchCeiling)
	}
	if overrides.DuplicateWindowMins > 0 {
		config.DuplicateWindow = time.Duration(overrides.DuplicateWindowMins) * time.Minute
	}
	if overrides.Timezone != "" {
		config.Timezone = overrides.Timezone
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	return config, nil
}

// CreateLoggerConfig builds a logger configuration from CLI flags
func CreateLoggerConfig(verbose bool, jsonFormat bool, file string) *logger.Config {
	config := logger.DefaultConfig()
	if verbose {
		config = logger.DebugConfig()
	}
	if jsonFormat {
		config.Format = logger.JSONFormat
	}
	if file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}
	return config
}
