package calibration

import (
	"errors"
	"math"
	"testing"

	"github.com/yourusername/hoopcal/internal/models"
)

func TestFitIsotonicPerfectlySeparatedData(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}
	outcomes := []float64{0, 0, 0, 1, 1, 1}
	mapping, err := FitIsotonic(probs, outcomes)
	if err != nil {
		t.Fatalf("FitIsotonic failed: %v", err)
	}
	if got := ApplyIsotonic(0.15, mapping); got != 0 {
		t.Errorf("expected 0 in the loss region, got %v", got)
	}
	if got := ApplyIsotonic(0.85, mapping); got != 1 {
		t.Errorf("expected 1 in the win region, got %v", got)
	}
}

func TestApplyIsotonicMonotonic(t *testing.T) {
	// Noisy outcomes force PAV pooling; the fitted mapping must still be
	// non-decreasing over the whole input domain.
	probs := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	outcomes := []float64{0, 1, 0, 0, 1, 0, 1, 1, 1}
	mapping, err := FitIsotonic(probs, outcomes)
	if err != nil {
		t.Fatalf("FitIsotonic failed: %v", err)
	}
	prev := -1.0
	for p := 0.0; p <= 1.0; p += 0.001 {
		got := ApplyIsotonic(p, mapping)
		if got < prev {
			t.Fatalf("monotonicity violated at p=%v: %v < %v", p, got, prev)
		}
		prev = got
	}
}

func TestApplyIsotonicClipsOutOfRange(t *testing.T) {
	mapping := models.IsotonicMapping{
		Breakpoints: []float64{0.3, 0.7},
		Values:      []float64{0.4, 0.6},
	}
	if got := ApplyIsotonic(0.0, mapping); got != 0.4 {
		t.Errorf("expected clip to lower boundary value 0.4, got %v", got)
	}
	if got := ApplyIsotonic(1.0, mapping); got != 0.6 {
		t.Errorf("expected clip to upper boundary value 0.6, got %v", got)
	}
	// Interior inputs interpolate.
	if got := ApplyIsotonic(0.5, mapping); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected interpolated 0.5, got %v", got)
	}
}

func TestApplyIsotonicEmptyMappingIsIdentity(t *testing.T) {
	if got := ApplyIsotonic(0.42, models.IsotonicMapping{}); got != 0.42 {
		t.Errorf("expected identity for empty mapping, got %v", got)
	}
}

func TestFitIsotonicTracksEmpiricalFrequency(t *testing.T) {
	// 100 raw probabilities uniform over [0.5, 0.9] from an overconfident
	// model where only 60% of games are actually wins. Recalibrating the
	// same set through the fitted mapping must bring ECE under 0.05.
	n := 100
	probs := make([]float64, n)
	outcomes := make([]float64, n)
	for i := 0; i < n; i++ {
		probs[i] = 0.5 + 0.4*float64(i)/float64(n-1)
		if i%5 < 3 {
			outcomes[i] = 1
		}
	}

	rawECE, err := ExpectedCalibrationError(probs, outcomes, 10)
	if err != nil {
		t.Fatalf("ECE on raw probabilities failed: %v", err)
	}

	mapping, err := FitIsotonic(probs, outcomes)
	if err != nil {
		t.Fatalf("FitIsotonic failed: %v", err)
	}
	calibrated := make([]float64, n)
	for i, p := range probs {
		calibrated[i] = ApplyIsotonic(p, mapping)
	}
	calibratedECE, err := ExpectedCalibrationError(calibrated, outcomes, 10)
	if err != nil {
		t.Fatalf("ECE on calibrated probabilities failed: %v", err)
	}

	if calibratedECE >= 0.05 {
		t.Fatalf("expected calibrated ECE < 0.05, got %v (raw %v)", calibratedECE, rawECE)
	}
	if calibratedECE >= rawECE {
		t.Fatalf("calibration did not improve ECE: raw %v calibrated %v", rawECE, calibratedECE)
	}
}

func TestFitIsotonicErrors(t *testing.T) {
	if _, err := FitIsotonic(nil, nil); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := FitIsotonic([]float64{0.5}, []float64{1, 0}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
