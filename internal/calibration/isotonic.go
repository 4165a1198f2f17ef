package calibration

import (
	"fmt"
	"sort"

	"github.com/yourusername/hoopcal/internal/models"
)

// FitIsotonic fits a monotonic non-parametric mapping from raw probability to
// empirical outcome frequency using pool-adjacent-violators regression on the
// validation set. The fitted mapping minimizes squared error subject to the
// values being non-decreasing in the raw probability.
//
// Must be fit exclusively on the validation split; callers guard against
// training-partition overlap with VerifyDisjoint before reaching here.
func FitIsotonic(probabilities, outcomes []float64) (models.IsotonicMapping, error) {
	if len(probabilities) == 0 {
		return models.IsotonicMapping{}, fmt.Errorf("empty validation set: %w", models.ErrInsufficientData)
	}
	if len(probabilities) != len(outcomes) {
		return models.IsotonicMapping{}, fmt.Errorf("length mismatch: %d probabilities vs %d outcomes", len(probabilities), len(outcomes))
	}

	type pair struct{ x, y float64 }
	pairs := make([]pair, len(probabilities))
	for i := range probabilities {
		pairs[i] = pair{probabilities[i], outcomes[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })

	// Pool adjacent violators: merge neighbouring blocks until the block
	// means are non-decreasing.
	type block struct {
		sumX, sumY, weight float64
	}
	blocks := make([]block, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, block{sumX: p.x, sumY: p.y, weight: 1})
		for len(blocks) > 1 {
			last := len(blocks) - 1
			prev := blocks[last-1]
			cur := blocks[last]
			if prev.sumY/prev.weight <= cur.sumY/cur.weight {
				break
			}
			blocks[last-1] = block{
				sumX:   prev.sumX + cur.sumX,
				sumY:   prev.sumY + cur.sumY,
				weight: prev.weight + cur.weight,
			}
			blocks = blocks[:last]
		}
	}

	mapping := models.IsotonicMapping{
		Breakpoints: make([]float64, len(blocks)),
		Values:      make([]float64, len(blocks)),
	}
	for i, b := range blocks {
		mapping.Breakpoints[i] = b.sumX / b.weight
		mapping.Values[i] = b.sumY / b.weight
	}
	return mapping, nil
}

// ApplyIsotonic maps a raw probability through the fitted mapping, linearly
// interpolating between breakpoints. Inputs outside the fitted domain are
// clipped to the boundary values, never extrapolated. An empty mapping is
// the identity. Monotonicity holds for any fitted mapping: p1 < p2 implies
// ApplyIsotonic(p1) <= ApplyIsotonic(p2).
func ApplyIsotonic(probability float64, mapping models.IsotonicMapping) float64 {
	if mapping.IsEmpty() {
		return probability
	}
	bp := mapping.Breakpoints
	vals := mapping.Values
	if probability <= bp[0] {
		return vals[0]
	}
	last := len(bp) - 1
	if probability >= bp[last] {
		return vals[last]
	}
	idx := sort.SearchFloat64s(bp, probability)
	// bp[idx-1] < probability <= bp[idx]
	span := bp[idx] - bp[idx-1]
	if span == 0 {
		return vals[idx]
	}
	frac := (probability - bp[idx-1]) / span
	return vals[idx-1] + frac*(vals[idx]-vals[idx-1])
}
