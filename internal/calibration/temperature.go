package calibration

import (
	"fmt"
	"math"

	"github.com/yourusername/hoopcal/internal/models"
)

// temperatureGridStep is the resolution of the grid search over candidate
// temperatures. Brier score is smooth in the temperature so 0.01 is ample.
const temperatureGridStep = 0.01

// ApplyTemperature rescales the probability spread around 0.5:
// 0.5 + (p-0.5)*t. A temperature below 1 softens confidence, above 1 sharpens
// it. The result is deliberately not clamped here; capping is a separate
// explicit policy applied downstream by the pipeline.
func ApplyTemperature(probability, temperature float64) float64 {
	return 0.5 + (probability-0.5)*temperature
}

// FitTemperature grid-searches [minTemp, maxTemp] for the temperature that
// minimizes Brier score on the validation set. Ties are broken by the
// smallest |t-1|, preferring minimal distortion; a degenerate
// validation set where every choice scores equally yields the candidate
// closest to 1.0 rather than an arbitrary one.
func FitTemperature(probabilities, outcomes []float64, minTemp, maxTemp float64) (float64, error) {
	if len(probabilities) == 0 {
		return 0, fmt.Errorf("empty validation set: %w", models.ErrInsufficientData)
	}
	if len(probabilities) != len(outcomes) {
		return 0, fmt.Errorf("length mismatch: %d probabilities vs %d outcomes", len(probabilities), len(outcomes))
	}
	if minTemp <= 0 || maxTemp < minTemp {
		return 0, fmt.Errorf("invalid temperature bounds [%v, %v]", minTemp, maxTemp)
	}

	const tie = 1e-12
	bestTemp := minTemp
	bestScore := math.Inf(1)
	for t := minTemp; t <= maxTemp+temperatureGridStep/2; t += temperatureGridStep {
		score := temperatureBrier(probabilities, outcomes, t)
		better := score < bestScore-tie
		tied := math.Abs(score-bestScore) <= tie && math.Abs(t-1.0) < math.Abs(bestTemp-1.0)
		if better || tied {
			bestTemp = t
			bestScore = score
		}
	}
	return bestTemp, nil
}

// temperatureBrier scores a candidate temperature. Scaled probabilities can
// leave [0,1] at the extremes of the grid; they are clamped for scoring only.
func temperatureBrier(probabilities, outcomes []float64, t float64) float64 {
	sum := 0.0
	for i, p := range probabilities {
		scaled := clamp(ApplyTemperature(p, t), 0, 1)
		diff := scaled - outcomes[i]
		sum += diff * diff
	}
	return sum / float64(len(probabilities))
}
