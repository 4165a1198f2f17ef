package calibration

import (
	"fmt"
	"math"

	"github.com/yourusername/hoopcal/internal/models"
)

// ProbabilityEpsilon bounds probabilities away from exact 0 and 1 before any
// logit transform, since logit is undefined at the endpoints. The clamp is
// part of the home-court contract and is tested as such.
const ProbabilityEpsilon = 1e-6

// shiftSearchBound bounds the bisection for the home-court logit shift. A
// shift of ±3 logits moves 0.5 past 0.95, far beyond any plausible empirical
// home advantage.
const shiftSearchBound = 3.0

// HomeObservation is one non-neutral validation game as seen by the
// home-court fit: the (already isotonic-calibrated) home win probability.
type HomeObservation struct {
	Probability float64
	NeutralSite bool
}

// FitHomeShift finds the logit-space additive shift under which the mean
// adjusted home win probability across non-neutral validation games equals
// targetHomeWinRate. The target is a configured constant reflecting
// historical home-court advantage, not learned from training data.
//
// The mean adjusted probability is strictly increasing in the shift, so a
// bisection over a bounded interval converges to the unique solution.
func FitHomeShift(observations []HomeObservation, targetHomeWinRate float64) (float64, error) {
	if targetHomeWinRate <= 0 || targetHomeWinRate >= 1 {
		return 0, fmt.Errorf("target home win rate must be in (0,1), got %v", targetHomeWinRate)
	}

	probs := make([]float64, 0, len(observations))
	for _, obs := range observations {
		if obs.NeutralSite {
			continue
		}
		probs = append(probs, ClampProbability(obs.Probability))
	}
	if len(probs) == 0 {
		return 0, fmt.Errorf("no non-neutral validation games: %w", models.ErrInsufficientData)
	}

	meanAt := func(shift float64) float64 {
		sum := 0.0
		for _, p := range probs {
			sum += sigmoid(logit(p) + shift)
		}
		return sum / float64(len(probs))
	}

	lo, hi := -shiftSearchBound, shiftSearchBound
	if meanAt(lo) > targetHomeWinRate {
		return lo, nil
	}
	if meanAt(hi) < targetHomeWinRate {
		return hi, nil
	}
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if meanAt(mid) < targetHomeWinRate {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

// ApplyHomeShift adjusts a home win probability by the fitted logit shift.
// Neutral-site games pass through unshifted; that conditional is part of the
// public contract, not an implementation detail.
func ApplyHomeShift(probability, logitShift float64, neutralSite bool) float64 {
	if neutralSite {
		return probability
	}
	return sigmoid(logit(ClampProbability(probability)) + logitShift)
}

// ClampProbability bounds a probability to the open interval
// [ProbabilityEpsilon, 1-ProbabilityEpsilon].
func ClampProbability(p float64) float64 {
	return clamp(p, ProbabilityEpsilon, 1-ProbabilityEpsilon)
}

// logit is the inverse-sigmoid transform ln(p/(1-p)), defined on (0,1).
func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
