// Package calibration implements probability calibration for raw classifier
// output: temporal splitting, calibration metrics, isotonic and temperature
// fitting, home-court adjustment and the confidence adjustment pipeline.
package calibration

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/hoopcal/internal/models"
)

// Split is a triple of disjoint GameRecord partitions ordered strictly by a
// date boundary: every train record precedes every validation record, which
// precedes every test record.
type Split struct {
	Train      []models.GameRecord
	Validation []models.GameRecord
	Test       []models.GameRecord
}

// TemporalSplit partitions a game history into train/validation/test windows
// with no future leakage. Test covers the trailing testDays relative to the
// most recent game date, validation the validationDays before that, and train
// everything older. Windows are half-open: a game lands in test when its date
// is strictly after maxDate − testDays.
//
// Returns ErrInsufficientData when any partition would be empty. Pure
// function; the input slice is not mutated.
func TemporalSplit(history []models.GameRecord, validationDays, testDays int) (Split, error) {
	if validationDays <= 0 || testDays <= 0 {
		return Split{}, fmt.Errorf("window sizes must be positive, got validation=%d test=%d", validationDays, testDays)
	}
	if len(history) == 0 {
		return Split{}, fmt.Errorf("empty history: %w", models.ErrInsufficientData)
	}

	ordered := make([]models.GameRecord, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GameDate.Before(ordered[j].GameDate)
	})

	maxDate := ordered[len(ordered)-1].GameDate
	testCutoff := maxDate.AddDate(0, 0, -testDays)
	validationCutoff := testCutoff.AddDate(0, 0, -validationDays)

	split := Split{}
	for _, game := range ordered {
		switch {
		case game.GameDate.After(testCutoff):
			split.Test = append(split.Test, game)
		case game.GameDate.After(validationCutoff):
			split.Validation = append(split.Validation, game)
		default:
			split.Train = append(split.Train, game)
		}
	}

	if len(split.Train) == 0 || len(split.Validation) == 0 || len(split.Test) == 0 {
		return Split{}, fmt.Errorf(
			"history of %d games spanning %s does not fill train/validation/test windows (%d/%d/%d): %w",
			len(ordered), maxDate.Sub(ordered[0].GameDate), len(split.Train), len(split.Validation), len(split.Test),
			models.ErrInsufficientData,
		)
	}

	return split, nil
}

// Boundary returns the latest game date in each partition, useful for logging
// the fitted window.
func (s Split) Boundary() (trainEnd, validationEnd, testEnd time.Time) {
	if n := len(s.Train); n > 0 {
		trainEnd = s.Train[n-1].GameDate
	}
	if n := len(s.Validation); n > 0 {
		validationEnd = s.Validation[n-1].GameDate
	}
	if n := len(s.Test); n > 0 {
		testEnd = s.Test[n-1].GameDate
	}
	return trainEnd, validationEnd, testEnd
}

// VerifyDisjoint checks that a fit input shares no game with the partition
// the underlying classifier was trained on. Fitting a calibrator on training
// data silently reproduces the classifier's overfitting, which is exactly
// the failure this package exists to prevent.
func VerifyDisjoint(trainingPartition, fitInput []models.GameRecord) error {
	if len(trainingPartition) == 0 || len(fitInput) == 0 {
		return nil
	}
	trained := make(map[uuid.UUID]struct{}, len(trainingPartition))
	for _, game := range trainingPartition {
		trained[game.ID] = struct{}{}
	}
	for _, game := range fitInput {
		if _, ok := trained[game.ID]; ok {
			return fmt.Errorf("game %s appears in both partitions: %w", game.ID, models.ErrDataLeakage)
		}
	}
	return nil
}
