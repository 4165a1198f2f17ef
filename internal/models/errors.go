package models

import "errors"

// Custom errors
var (
	// ErrInsufficientData indicates a split or fit had too few records to
	// produce a non-degenerate partition or parameter. Callers should keep
	// the last-known-good calibration model and retry next cycle.
	ErrInsufficientData = errors.New("insufficient data for split or fit")

	// ErrInvalidProbability indicates an input probability outside [0,1] or
	// non-finite. Fatal to that single prediction only.
	ErrInvalidProbability = errors.New("probability outside [0,1] or not finite")

	// ErrEmptyInput indicates a metric was requested over zero records.
	ErrEmptyInput = errors.New("empty input")

	// ErrDataLeakage indicates a fit call received records overlapping the
	// partition the underlying classifier was trained on.
	ErrDataLeakage = errors.New("fit input overlaps classifier training partition")

	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
)
