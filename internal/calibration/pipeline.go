package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/hoopcal/internal/models"
)

// Adjust converts a raw classifier probability into the final calibrated,
// bounded, context-adjusted prediction. Deterministic ordered composition:
//
//  1. clamp the raw probability to a safe open interval
//  2. isotonic calibration
//  3. home-court shift (non-neutral games only)
//  4. temperature scaling
//  5. early-season dampening toward 0.5
//  6. symmetric confidence cap
//  7. label and confidence derivation
//
// Pure function of its inputs; safe for concurrent use against a shared
// fitted model. Fails with ErrInvalidProbability only when the raw input is
// outside [0,1] or not finite.
func Adjust(rawProbability float64, ctx models.GameContext, model *models.CalibrationModel) (models.CalibratedPrediction, error) {
	if math.IsNaN(rawProbability) || math.IsInf(rawProbability, 0) || rawProbability < 0 || rawProbability > 1 {
		return models.CalibratedPrediction{}, fmt.Errorf("raw probability %v for game %s: %w",
			rawProbability, ctx.GameID, models.ErrInvalidProbability)
	}
	if model == nil {
		return models.CalibratedPrediction{}, fmt.Errorf("nil calibration model for game %s", ctx.GameID)
	}

	p := ClampProbability(rawProbability)
	p = ApplyIsotonic(p, model.Isotonic)
	p = ApplyHomeShift(p, model.HomeLogitShift, ctx.NeutralSite)
	p = ApplyTemperature(p, model.Temperature)

	minGames := ctx.MinGamesPlayed()
	p = 0.5 + (p-0.5)*model.DampeningFactor(minGames)
	p = capConfidence(p, model.CapFor(minGames))
	p = ClampProbability(p)

	winner := models.WinnerHome
	confidence := p
	if p < 0.5 {
		winner = models.WinnerAway
		confidence = 1 - p
	}

	return models.CalibratedPrediction{
		ID:                    uuid.New(),
		GameID:                ctx.GameID,
		RawProbability:        rawProbability,
		CalibratedProbability: p,
		PredictedWinner:       winner,
		Confidence:            confidence,
		CalibrationVersion:    model.ID,
		AdjustedAt:            time.Now().UTC(),
	}, nil
}

// capConfidence pulls p toward 0.5 by the minimum amount needed so that
// max(p, 1-p) does not exceed cap. The adjustment is symmetric around 0.5;
// naive clipping of p alone would break the probability/confidence
// relationship for away-favoured games. Idempotent: capping a capped value
// is a no-op.
func capConfidence(p, cap float64) float64 {
	offset := p - 0.5
	limit := cap - 0.5
	if offset > limit {
		offset = limit
	}
	if offset < -limit {
		offset = -limit
	}
	return 0.5 + offset
}
