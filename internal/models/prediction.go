package models

import (
	"time"

	"github.com/google/uuid"
)

// RawPrediction represents the uncalibrated output of the external classifier
// for one game, together with the feature context needed for adjustment.
// Produced once per game upstream; consumed exactly once by the pipeline.
type RawPrediction struct {
	GameID             uuid.UUID   `db:"game_id" json:"game_id" validate:"required,uuid4"`
	HomeWinProbability float64     `db:"home_win_probability" json:"home_win_probability" validate:"gte=0,lte=1"`
	ModelVersion       string      `db:"model_version" json:"model_version"`
	Context            GameContext `db:"-" json:"context"`
	PredictedAt        time.Time   `db:"predicted_at" json:"predicted_at"`
}

// Winner identifies which side a calibrated prediction favours.
type Winner string

const (
	WinnerHome Winner = "home"
	WinnerAway Winner = "away"
)

// CalibratedPrediction is the pipeline output for one game. Derived
// deterministically from a RawPrediction and a CalibrationModel; never
// mutated after creation.
type CalibratedPrediction struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	GameID                uuid.UUID `db:"game_id" json:"game_id" validate:"required,uuid4"`
	RawProbability        float64   `db:"raw_probability" json:"raw_probability" validate:"gte=0,lte=1"`
	CalibratedProbability float64   `db:"calibrated_probability" json:"calibrated_probability" validate:"gt=0,lt=1"`
	PredictedWinner       Winner    `db:"predicted_winner" json:"predicted_winner"`
	Confidence            float64   `db:"confidence" json:"confidence" validate:"gte=0.5,lte=1"`
	CalibrationVersion    uuid.UUID `db:"calibration_version" json:"calibration_version"`
	AdjustedAt            time.Time `db:"adjusted_at" json:"adjusted_at"`
}

// MeetsThreshold checks if the confidence meets the given threshold.
func (p *CalibratedPrediction) MeetsThreshold(threshold float64) bool {
	return p.Confidence >= threshold
}

// PredictionOutcome pairs a stored calibrated prediction with the settled
// game result, the unit of input for report evaluation.
type PredictionOutcome struct {
	Prediction CalibratedPrediction `json:"prediction"`
	HomeWon    bool                 `json:"home_won"`
}

// Correct reports whether the predicted winner matched the settled result.
func (o PredictionOutcome) Correct() bool {
	if o.HomeWon {
		return o.Prediction.PredictedWinner == WinnerHome
	}
	return o.Prediction.PredictedWinner == WinnerAway
}
