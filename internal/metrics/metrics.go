// Package metrics provides the centralized Prometheus metrics registry for
// the prediction pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsAdjustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hoopcal",
		Name:      "predictions_adjusted_total",
		Help:      "Total number of raw predictions run through the calibration pipeline",
	})
	PredictionFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hoopcal",
		Name:      "prediction_failures_total",
		Help:      "Total number of predictions rejected by the pipeline",
	}, []string{"reason"})
	RefitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hoopcal",
		Name:      "refits_total",
		Help:      "Total number of calibration refit attempts",
	}, []string{"status"})
	ClassifierRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hoopcal",
		Name:      "classifier_requests_total",
		Help:      "Total number of classifier batch requests",
	}, []string{"status"})
	ReportsGeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hoopcal",
		Name:      "reports_generated_total",
		Help:      "Total number of calibration reports generated",
	})
)

// Gauge metrics
var (
	ActiveModelAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "active_model_age_seconds",
		Help:      "Age of the active calibration model since fitting",
	})
	ExpectedCalibrationError = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "expected_calibration_error",
		Help:      "ECE from the most recent calibration report",
	})
	BrierScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "brier_score",
		Help:      "Brier score from the most recent calibration report",
	})
	LogLoss = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "log_loss",
		Help:      "Log loss from the most recent calibration report",
	})
	ReportAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "report_accuracy",
		Help:      "Winner accuracy from the most recent calibration report",
	})
	ValidationGames = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hoopcal",
		Name:      "validation_games",
		Help:      "Number of games the active model was fitted on",
	})
)

// Histogram metrics
var (
	RefitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hoopcal",
		Name:      "refit_duration_seconds",
		Help:      "Duration of calibration refits in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	AdjustmentBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hoopcal",
		Name:      "adjustment_batch_duration_seconds",
		Help:      "Duration of pipeline batch adjustments in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ClassifierRequestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hoopcal",
		Name:      "classifier_request_latency_seconds",
		Help:      "Latency of classifier batch requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PredictionsAdjustedTotal)
		registry.MustRegister(PredictionFailuresTotal)
		registry.MustRegister(RefitsTotal)
		registry.MustRegister(ClassifierRequestsTotal)
		registry.MustRegister(ReportsGeneratedTotal)

		registry.MustRegister(ActiveModelAgeSeconds)
		registry.MustRegister(ExpectedCalibrationError)
		registry.MustRegister(BrierScore)
		registry.MustRegister(LogLoss)
		registry.MustRegister(ReportAccuracy)
		registry.MustRegister(ValidationGames)

		registry.MustRegister(RefitDuration)
		registry.MustRegister(AdjustmentBatchDuration)
		registry.MustRegister(ClassifierRequestLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPredictionAdjusted records a successful pipeline adjustment.
func RecordPredictionAdjusted() {
	PredictionsAdjustedTotal.Inc()
}

// RecordPredictionFailure records a rejected prediction.
func RecordPredictionFailure(reason string) {
	PredictionFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordRefit records a refit attempt and its duration.
func RecordRefit(status string, durationSeconds float64) {
	RefitsTotal.WithLabelValues(status).Inc()
	RefitDuration.Observe(durationSeconds)
}

// RecordClassifierRequest records a classifier batch request.
func RecordClassifierRequest(status string, durationSeconds float64) {
	ClassifierRequestsTotal.WithLabelValues(status).Inc()
	ClassifierRequestLatency.Observe(durationSeconds)
}

// UpdateReportMetrics publishes the headline numbers of a calibration report.
func UpdateReportMetrics(ece, brier, logLoss, accuracy float64) {
	ReportsGeneratedTotal.Inc()
	ExpectedCalibrationError.Set(ece)
	BrierScore.Set(brier)
	LogLoss.Set(logLoss)
	ReportAccuracy.Set(accuracy)
}

// UpdateActiveModel publishes gauges describing the active model.
func UpdateActiveModel(ageSeconds float64, validationGames int) {
	ActiveModelAgeSeconds.Set(ageSeconds)
	ValidationGames.Set(float64(validationGames))
}

// RecordAdjustmentBatch records the duration of a batch adjustment.
func RecordAdjustmentBatch(durationSeconds float64) {
	AdjustmentBatchDuration.Observe(durationSeconds)
}
