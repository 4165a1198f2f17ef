package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReliabilityBucket holds per-bucket reliability statistics: how closely the
// mean predicted probability inside the bucket tracks empirical accuracy.
type ReliabilityBucket struct {
	Low               float64 `json:"low"`
	High              float64 `json:"high"`
	Count             int     `json:"count"`
	MeanConfidence    float64 `json:"mean_confidence"`
	EmpiricalAccuracy float64 `json:"empirical_accuracy"`
}

// Gap returns the absolute difference between mean confidence and empirical
// accuracy within the bucket.
func (b ReliabilityBucket) Gap() float64 {
	gap := b.MeanConfidence - b.EmpiricalAccuracy
	if gap < 0 {
		return -gap
	}
	return gap
}

// CalibrationReport aggregates calibration metrics over a batch of settled
// predictions. Purely derived; recomputed on demand and stored nowhere
// authoritative.
type CalibrationReport struct {
	CalibrationVersion uuid.UUID           `json:"calibration_version"`
	GeneratedAt        time.Time           `json:"generated_at"`
	Games              int                 `json:"games"`
	ECE                float64             `json:"ece"`
	BrierScore         float64             `json:"brier_score"`
	LogLoss            float64             `json:"log_loss"`
	Accuracy           float64             `json:"accuracy"`
	Buckets            []ReliabilityBucket `json:"buckets"`
}

// ToJSON exports the report to JSON.
func (r CalibrationReport) ToJSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}
