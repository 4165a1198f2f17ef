package calibration

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/hoopcal/internal/models"
)

// FitConfig carries the calibration policy knobs for a refit. All values are
// explicit configuration passed by the caller; the package reads no ambient
// state.
type FitConfig struct {
	ValidationDays       int
	TestDays             int
	TemperatureMin       float64
	TemperatureMax       float64
	TargetHomeWinRate    float64
	ConfidenceCap        float64
	EarlySeasonCap       float64
	EarlySeasonThreshold int
	EarlySeasonFactors   []models.EarlySeasonFactor
}

// Refit fits a new calibration model from a chronological game history and
// the classifier's raw home-win probabilities per game. Every parameter is
// fit on the validation partition only: the train partition is what the
// underlying classifier saw, and the test partition is reserved for unbiased
// evaluation. The returned model is a new immutable value; the caller is
// responsible for atomically swapping it in for the previous one.
//
// Fit order is isotonic -> home-court -> temperature, matching the order the
// adjustment pipeline applies them, so each stage is fit on the output of
// the stages before it.
func Refit(history []models.GameRecord, rawProbabilities map[uuid.UUID]float64, cfg FitConfig) (*models.CalibrationModel, error) {
	split, err := TemporalSplit(history, cfg.ValidationDays, cfg.TestDays)
	if err != nil {
		return nil, fmt.Errorf("temporal split: %w", err)
	}
	if err := VerifyDisjoint(split.Train, split.Validation); err != nil {
		return nil, err
	}

	games := make([]models.GameRecord, 0, len(split.Validation))
	probs := make([]float64, 0, len(split.Validation))
	outcomes := make([]float64, 0, len(split.Validation))
	for _, game := range split.Validation {
		raw, ok := rawProbabilities[game.ID]
		if !ok {
			continue
		}
		games = append(games, game)
		probs = append(probs, ClampProbability(raw))
		outcomes = append(outcomes, game.Outcome())
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("no validation games with raw probabilities: %w", models.ErrInsufficientData)
	}

	mapping, err := FitIsotonic(probs, outcomes)
	if err != nil {
		return nil, fmt.Errorf("isotonic fit: %w", err)
	}

	calibrated := make([]float64, len(probs))
	observations := make([]HomeObservation, len(probs))
	for i, p := range probs {
		calibrated[i] = ApplyIsotonic(p, mapping)
		observations[i] = HomeObservation{Probability: calibrated[i], NeutralSite: games[i].NeutralSite}
	}

	shift, err := FitHomeShift(observations, cfg.TargetHomeWinRate)
	if err != nil {
		return nil, fmt.Errorf("home-court fit: %w", err)
	}

	shifted := make([]float64, len(calibrated))
	for i, p := range calibrated {
		shifted[i] = ApplyHomeShift(p, shift, games[i].NeutralSite)
	}

	temperature, err := FitTemperature(shifted, outcomes, cfg.TemperatureMin, cfg.TemperatureMax)
	if err != nil {
		return nil, fmt.Errorf("temperature fit: %w", err)
	}

	return &models.CalibrationModel{
		ID:                   uuid.New(),
		FittedAt:             time.Now().UTC(),
		Temperature:          temperature,
		Isotonic:             mapping,
		HomeLogitShift:       shift,
		ConfidenceCap:        cfg.ConfidenceCap,
		EarlySeasonCap:       cfg.EarlySeasonCap,
		EarlySeasonThreshold: cfg.EarlySeasonThreshold,
		EarlySeasonFactors:   cfg.EarlySeasonFactors,
		ValidationWindowDays: cfg.ValidationDays,
		TestWindowDays:       cfg.TestDays,
		ValidationGames:      len(games),
	}, nil
}
