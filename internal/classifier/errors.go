// Package classifier provides the HTTP client for the external model-serving
// endpoint that produces raw, uncalibrated win probabilities.
package classifier

import "errors"

var (
	// ErrClassifierUnavailable indicates the classifier service is unreachable
	ErrClassifierUnavailable = errors.New("classifier service unavailable")

	// ErrInvalidResponse indicates the prediction response is malformed
	ErrInvalidResponse = errors.New("invalid response from classifier service")

	// ErrCircuitOpen indicates requests are being rejected after repeated failures
	ErrCircuitOpen = errors.New("classifier circuit breaker open")
)
