// Package logger provides calibration-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// CalibrationLogger provides dedicated logging for calibration operations.
type CalibrationLogger struct {
	*logrus.Entry
}

// NewCalibrationLogger creates a new calibration logger.
func NewCalibrationLogger(baseLogger *logrus.Logger) *CalibrationLogger {
	return &CalibrationLogger{
		Entry: baseLogger.WithField("component", "calibration"),
	}
}

// LogRefit logs a completed refit and its fitted parameters.
func (cl *CalibrationLogger) LogRefit(modelVersion string, validationGames int, temperature, homeLogitShift float64, isotonicBreakpoints int, durationMs float64) {
	cl.WithFields(logrus.Fields{
		"model_version":        modelVersion,
		"validation_games":     validationGames,
		"temperature":          temperature,
		"home_logit_shift":     homeLogitShift,
		"isotonic_breakpoints": isotonicBreakpoints,
		"duration_ms":          durationMs,
	}).Info("Calibration refit completed")
}

// LogRefitSkipped logs a refit cycle that kept the previous model.
func (cl *CalibrationLogger) LogRefitSkipped(reason string, historyGames int) {
	cl.WithFields(logrus.Fields{
		"reason":        reason,
		"history_games": historyGames,
	}).Warn("Calibration refit skipped, keeping previous model")
}

// LogReport logs a recomputed calibration report.
func (cl *CalibrationLogger) LogReport(modelVersion string, games int, ece, brier, logLoss, accuracy float64) {
	cl.WithFields(logrus.Fields{
		"model_version": modelVersion,
		"games":         games,
		"ece":           ece,
		"brier_score":   brier,
		"log_loss":      logLoss,
		"accuracy":      accuracy,
	}).Info("Calibration report computed")
}

// LogBatchAdjusted logs a completed batch adjustment with per-item failures.
func (cl *CalibrationLogger) LogBatchAdjusted(modelVersion string, adjusted, failed int) {
	entry := cl.WithFields(logrus.Fields{
		"model_version": modelVersion,
		"adjusted":      adjusted,
		"failed":        failed,
	})
	if failed > 0 {
		entry.Warn("Batch adjustment completed with failures")
		return
	}
	entry.Info("Batch adjustment completed")
}
