package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/hoopcal/internal/models"
)

// LogLossEpsilon is the clamp applied to probabilities before taking logs so
// that a confident miss produces a large finite loss rather than +Inf. The
// clamp is an explicit policy of the log-loss contract, not an implementation
// accident.
const LogLossEpsilon = 1e-9

// BrierScore computes the mean squared error between predicted probabilities
// and binary outcomes (0/1). Returns ErrEmptyInput on zero-length input.
func BrierScore(probabilities, outcomes []float64) (float64, error) {
	if err := checkPaired(probabilities, outcomes); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range probabilities {
		diff := p - outcomes[i]
		sum += diff * diff
	}
	return sum / float64(len(probabilities)), nil
}

// LogLoss computes the mean negative log-likelihood of the outcomes under the
// predicted probabilities, with probabilities clamped to
// [LogLossEpsilon, 1-LogLossEpsilon].
func LogLoss(probabilities, outcomes []float64) (float64, error) {
	if err := checkPaired(probabilities, outcomes); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range probabilities {
		p = clamp(p, LogLossEpsilon, 1-LogLossEpsilon)
		sum += -(outcomes[i]*math.Log(p) + (1-outcomes[i])*math.Log(1-p))
	}
	return sum / float64(len(probabilities)), nil
}

// ExpectedCalibrationError partitions [0,1] into nBins equal-width bins by
// predicted probability and returns the population-weighted sum of the
// absolute gaps between mean outcome and mean probability per bin. Empty
// bins contribute zero.
func ExpectedCalibrationError(probabilities, outcomes []float64, nBins int) (float64, error) {
	if err := checkPaired(probabilities, outcomes); err != nil {
		return 0, err
	}
	if nBins <= 0 {
		return 0, fmt.Errorf("bin count must be positive, got %d", nBins)
	}

	counts := make([]int, nBins)
	probSums := make([]float64, nBins)
	outcomeSums := make([]float64, nBins)
	for i, p := range probabilities {
		bin := int(p * float64(nBins))
		if bin >= nBins {
			bin = nBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
		probSums[bin] += p
		outcomeSums[bin] += outcomes[i]
	}

	total := float64(len(probabilities))
	ece := 0.0
	for bin := 0; bin < nBins; bin++ {
		if counts[bin] == 0 {
			continue
		}
		n := float64(counts[bin])
		gap := math.Abs(outcomeSums[bin]/n - probSums[bin]/n)
		ece += gap * n / total
	}
	return ece, nil
}

// ReliabilityByBucket computes per-bucket reliability statistics for the
// given bucket edges. Edges must be ascending; each bucket is half-open
// [low, high) with the final bucket closed at its upper edge.
func ReliabilityByBucket(probabilities, outcomes []float64, bucketEdges []float64) ([]models.ReliabilityBucket, error) {
	if err := checkPaired(probabilities, outcomes); err != nil {
		return nil, err
	}
	if len(bucketEdges) < 2 {
		return nil, fmt.Errorf("need at least two bucket edges, got %d", len(bucketEdges))
	}
	for i := 1; i < len(bucketEdges); i++ {
		if bucketEdges[i] <= bucketEdges[i-1] {
			return nil, fmt.Errorf("bucket edges must be ascending at index %d", i)
		}
	}

	buckets := make([]models.ReliabilityBucket, len(bucketEdges)-1)
	for i := range buckets {
		buckets[i].Low = bucketEdges[i]
		buckets[i].High = bucketEdges[i+1]
	}

	probSums := make([]float64, len(buckets))
	outcomeSums := make([]float64, len(buckets))
	for i, p := range probabilities {
		idx := bucketIndex(p, bucketEdges)
		if idx < 0 {
			continue
		}
		buckets[idx].Count++
		probSums[idx] += p
		outcomeSums[idx] += outcomes[i]
	}

	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		n := float64(buckets[i].Count)
		buckets[i].MeanConfidence = probSums[i] / n
		buckets[i].EmpiricalAccuracy = outcomeSums[i] / n
	}
	return buckets, nil
}

// BuildReport evaluates a batch of settled predictions against the model that
// produced them and assembles the full calibration report.
func BuildReport(results []models.PredictionOutcome, nBins int) (models.CalibrationReport, error) {
	if len(results) == 0 {
		return models.CalibrationReport{}, fmt.Errorf("no settled predictions: %w", models.ErrEmptyInput)
	}

	probs := make([]float64, len(results))
	outcomes := make([]float64, len(results))
	correct := 0
	for i, r := range results {
		probs[i] = r.Prediction.CalibratedProbability
		if r.HomeWon {
			outcomes[i] = 1.0
		}
		if r.Correct() {
			correct++
		}
	}

	ece, err := ExpectedCalibrationError(probs, outcomes, nBins)
	if err != nil {
		return models.CalibrationReport{}, err
	}
	brier, err := BrierScore(probs, outcomes)
	if err != nil {
		return models.CalibrationReport{}, err
	}
	logLoss, err := LogLoss(probs, outcomes)
	if err != nil {
		return models.CalibrationReport{}, err
	}
	buckets, err := ReliabilityByBucket(probs, outcomes, uniformEdges(nBins))
	if err != nil {
		return models.CalibrationReport{}, err
	}

	report := models.CalibrationReport{
		GeneratedAt: time.Now().UTC(),
		Games:       len(results),
		ECE:         ece,
		BrierScore:  brier,
		LogLoss:     logLoss,
		Accuracy:    float64(correct) / float64(len(results)),
		Buckets:     buckets,
	}
	if len(results) > 0 {
		report.CalibrationVersion = results[0].Prediction.CalibrationVersion
	}
	return report, nil
}

func uniformEdges(nBins int) []float64 {
	edges := make([]float64, nBins+1)
	for i := range edges {
		edges[i] = float64(i) / float64(nBins)
	}
	return edges
}

func bucketIndex(p float64, edges []float64) int {
	if p < edges[0] || p > edges[len(edges)-1] {
		return -1
	}
	for i := 1; i < len(edges)-1; i++ {
		if p < edges[i] {
			return i - 1
		}
	}
	return len(edges) - 2
}

func checkPaired(probabilities, outcomes []float64) error {
	if len(probabilities) == 0 {
		return fmt.Errorf("no probabilities: %w", models.ErrEmptyInput)
	}
	if len(probabilities) != len(outcomes) {
		return fmt.Errorf("length mismatch: %d probabilities vs %d outcomes", len(probabilities), len(outcomes))
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
