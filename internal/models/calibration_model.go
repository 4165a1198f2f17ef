package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IsotonicMapping is a fitted monotonic mapping from raw probability to
// calibrated probability: ordered breakpoints with their calibrated values.
// Both slices are non-decreasing and always the same length.
type IsotonicMapping struct {
	Breakpoints []float64 `json:"breakpoints"`
	Values      []float64 `json:"values"`
}

// IsEmpty reports whether the mapping has no fitted breakpoints, in which
// case applying it is the identity.
func (m IsotonicMapping) IsEmpty() bool {
	return len(m.Breakpoints) == 0
}

// EarlySeasonFactor is one row of the early-season dampening table: games
// with min(games played) at or above GamesPlayed shrink toward 0.5 by Factor.
// Rows are ordered by GamesPlayed and Factor is monotonic toward 1.0.
type EarlySeasonFactor struct {
	GamesPlayed int     `json:"games_played" mapstructure:"games_played" validate:"gte=0"`
	Factor      float64 `json:"factor" mapstructure:"factor" validate:"gt=0,lte=1"`
}

// CalibrationModel is the fitted, versioned bundle of calibration parameters.
// It is created by an offline refit against a validation split and immutable
// once fit; online predictions read it concurrently without locking, and a
// refit produces a new instance swapped in atomically by the caller.
type CalibrationModel struct {
	ID                   uuid.UUID           `db:"id" json:"id"`
	FittedAt             time.Time           `db:"fitted_at" json:"fitted_at"`
	Temperature          float64             `db:"temperature" json:"temperature" validate:"gt=0"`
	Isotonic             IsotonicMapping     `db:"-" json:"isotonic"`
	HomeLogitShift       float64             `db:"home_logit_shift" json:"home_logit_shift"`
	ConfidenceCap        float64             `db:"confidence_cap" json:"confidence_cap" validate:"gt=0.5,lt=1"`
	EarlySeasonCap       float64             `db:"early_season_cap" json:"early_season_cap" validate:"gt=0.5,lt=1"`
	EarlySeasonThreshold int                 `db:"early_season_threshold" json:"early_season_threshold" validate:"gte=0"`
	EarlySeasonFactors   []EarlySeasonFactor `db:"-" json:"early_season_factors"`
	ValidationWindowDays int                 `db:"validation_window_days" json:"validation_window_days"`
	TestWindowDays       int                 `db:"test_window_days" json:"test_window_days"`
	ValidationGames      int                 `db:"validation_games" json:"validation_games"`
	Active               bool                `db:"active" json:"active"`
}

// DampeningFactor returns the shrink-toward-0.5 factor for a game where the
// less-experienced team has played minGames games. Beyond the last table row
// the factor is 1.0 (no dampening).
func (m *CalibrationModel) DampeningFactor(minGames int) float64 {
	factor := 1.0
	for _, row := range m.EarlySeasonFactors {
		if minGames >= row.GamesPlayed {
			factor = row.Factor
		}
	}
	return factor
}

// CapFor returns the confidence ceiling for a game where the less-experienced
// team has played minGames games.
func (m *CalibrationModel) CapFor(minGames int) float64 {
	if minGames < m.EarlySeasonThreshold {
		return m.EarlySeasonCap
	}
	return m.ConfidenceCap
}

// modelParameters is the JSONB representation of everything the adjustment
// pipeline needs beyond the row columns: fitted values plus the policy
// snapshot the model was fit under.
type modelParameters struct {
	Temperature          float64             `json:"temperature"`
	Isotonic             IsotonicMapping     `json:"isotonic"`
	HomeLogitShift       float64             `json:"home_logit_shift"`
	ConfidenceCap        float64             `json:"confidence_cap"`
	EarlySeasonCap       float64             `json:"early_season_cap"`
	EarlySeasonThreshold int                 `json:"early_season_threshold"`
	EarlySeasonFactors   []EarlySeasonFactor `json:"early_season_factors"`
	ValidationWindowDays int                 `json:"validation_window_days"`
	TestWindowDays       int                 `json:"test_window_days"`
}

// Parameters serializes the fitted parameters for persistence as JSONB.
func (m *CalibrationModel) Parameters() (json.RawMessage, error) {
	return json.Marshal(modelParameters{
		Temperature:          m.Temperature,
		Isotonic:             m.Isotonic,
		HomeLogitShift:       m.HomeLogitShift,
		ConfidenceCap:        m.ConfidenceCap,
		EarlySeasonCap:       m.EarlySeasonCap,
		EarlySeasonThreshold: m.EarlySeasonThreshold,
		EarlySeasonFactors:   m.EarlySeasonFactors,
		ValidationWindowDays: m.ValidationWindowDays,
		TestWindowDays:       m.TestWindowDays,
	})
}

// SetParameters restores the fitted parameters from a persisted JSONB blob.
func (m *CalibrationModel) SetParameters(raw json.RawMessage) error {
	var params modelParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return err
	}
	m.Temperature = params.Temperature
	m.Isotonic = params.Isotonic
	m.HomeLogitShift = params.HomeLogitShift
	m.ConfidenceCap = params.ConfidenceCap
	m.EarlySeasonCap = params.EarlySeasonCap
	m.EarlySeasonThreshold = params.EarlySeasonThreshold
	m.EarlySeasonFactors = params.EarlySeasonFactors
	m.ValidationWindowDays = params.ValidationWindowDays
	m.TestWindowDays = params.TestWindowDays
	return nil
}
