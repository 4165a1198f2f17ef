// Package service orchestrates the calibration pipeline: refits, batch
// adjustment, and report generation against the active model.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/hoopcal/internal/calibration"
	"github.com/yourusername/hoopcal/internal/config"
	"github.com/yourusername/hoopcal/internal/logger"
	"github.com/yourusername/hoopcal/internal/metrics"
	"github.com/yourusername/hoopcal/internal/models"
	"github.com/yourusername/hoopcal/internal/repository"
)

// ClassifierClient is the classifier surface the calibrator depends on
type ClassifierClient interface {
	Predict(ctx context.Context, games []models.GameRecord) ([]models.RawPrediction, error)
	HealthCheck(ctx context.Context) error
}

// Calibrator owns the active calibration model and runs the pipeline around
// it. The model is swapped atomically: in-flight predictions finish against
// the model they started with, and a failed refit keeps the previous model
// serving.
type Calibrator struct {
	games       repository.GameRepository
	modelRepo   repository.CalibrationModelRepository
	predictions repository.PredictionRepository
	classifier  ClassifierClient
	cfg         *config.CalibrationConfig
	logger      *logrus.Logger
	calLogger   *logger.CalibrationLogger

	active atomic.Pointer[models.CalibrationModel]

	// now is replaceable in tests
	now func() time.Time
}

// NewCalibrator creates a calibrator service
func NewCalibrator(
	repos *repository.Repositories,
	classifier ClassifierClient,
	cfg *config.CalibrationConfig,
	log *logrus.Logger,
) *Calibrator {
	return &Calibrator{
		games:       repos.Game,
		modelRepo:   repos.CalibrationModel,
		predictions: repos.Prediction,
		classifier:  classifier,
		cfg:         cfg,
		logger:      log,
		calLogger:   logger.NewCalibrationLogger(log),
		now:         time.Now,
	}
}

// ActiveModel returns the model currently serving predictions, or nil
func (c *Calibrator) ActiveModel() *models.CalibrationModel {
	return c.active.Load()
}

// HasActiveModel reports whether a calibration model is loaded
func (c *Calibrator) HasActiveModel() bool {
	return c.active.Load() != nil
}

// LoadActiveModel restores the persisted active model into memory. Called at
// startup; returns models.ErrNotFound when no model has been fit yet.
func (c *Calibrator) LoadActiveModel(ctx context.Context) error {
	model, err := c.modelRepo.GetActive(ctx)
	if err != nil {
		return err
	}
	c.active.Store(model)
	metrics.UpdateActiveModel(c.now().Sub(model.FittedAt).Seconds(), model.ValidationGames)

	c.logger.WithFields(logrus.Fields{
		"model_version": model.ID,
		"fitted_at":     model.FittedAt,
	}).Info("Active calibration model loaded")
	return nil
}

// Refit fits a fresh calibration model from recent history, persists and
// activates it, and swaps it in for online predictions. On any error the
// previous model keeps serving.
func (c *Calibrator) Refit(ctx context.Context) (*models.CalibrationModel, error) {
	start := c.now()
	from := start.AddDate(0, 0, -c.cfg.HistoryDays)

	history, err := c.games.ListChronological(ctx, from, start)
	if err != nil {
		metrics.RecordRefit("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to load game history: %w", err)
	}

	raws, err := c.classifier.Predict(ctx, history)
	if err != nil {
		metrics.RecordRefit("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to fetch raw probabilities: %w", err)
	}
	rawByGame := make(map[uuid.UUID]float64, len(raws))
	for _, r := range raws {
		rawByGame[r.GameID] = r.HomeWinProbability
	}

	model, err := calibration.Refit(history, rawByGame, c.fitConfig())
	if err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			c.calLogger.LogRefitSkipped(err.Error(), len(history))
			metrics.RecordRefit("skipped", time.Since(start).Seconds())
			return nil, err
		}
		metrics.RecordRefit("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("refit failed: %w", err)
	}

	if err := c.modelRepo.Create(ctx, model); err != nil {
		metrics.RecordRefit("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}
	if err := c.modelRepo.Activate(ctx, model.ID); err != nil {
		metrics.RecordRefit("failed", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to activate model: %w", err)
	}

	model.Active = true
	c.active.Store(model)

	duration := time.Since(start)
	metrics.RecordRefit("success", duration.Seconds())
	metrics.UpdateActiveModel(0, model.ValidationGames)
	c.calLogger.LogRefit(
		model.ID.String(),
		model.ValidationGames,
		model.Temperature,
		model.HomeLogitShift,
		len(model.Isotonic.Breakpoints),
		float64(duration.Milliseconds()),
	)

	return model, nil
}

// PredictBatch fetches raw probabilities for the given games, runs each
// through the adjustment pipeline against the active model, and persists the
// results. A bad prediction is skipped and counted, never fails the batch.
func (c *Calibrator) PredictBatch(ctx context.Context, games []models.GameRecord) ([]models.CalibratedPrediction, error) {
	model := c.active.Load()
	if model == nil {
		return nil, fmt.Errorf("no active calibration model: %w", models.ErrNotFound)
	}
	if len(games) == 0 {
		return nil, nil
	}

	start := c.now()
	raws, err := c.classifier.Predict(ctx, games)
	if err != nil {
		metrics.RecordClassifierRequest("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to fetch raw predictions: %w", err)
	}
	metrics.RecordClassifierRequest("ok", time.Since(start).Seconds())

	adjusted := make([]models.CalibratedPrediction, 0, len(raws))
	failed := 0
	for _, raw := range raws {
		pred, err := calibration.Adjust(raw.HomeWinProbability, raw.Context, model)
		if err != nil {
			failed++
			metrics.RecordPredictionFailure("invalid_probability")
			c.logger.WithError(err).WithField("game_id", raw.GameID).
				Warn("Skipping prediction")
			continue
		}
		adjusted = append(adjusted, pred)
		metrics.RecordPredictionAdjusted()
	}

	if err := c.predictions.InsertBatch(ctx, adjusted, c.cfg.ConfidenceThreshold); err != nil {
		return nil, fmt.Errorf("failed to store predictions: %w", err)
	}

	metrics.RecordAdjustmentBatch(time.Since(start).Seconds())
	c.calLogger.LogBatchAdjusted(model.ID.String(), len(adjusted), failed)

	return adjusted, nil
}

// EvaluateActive recomputes the calibration report for the active model over
// the most recent test window of settled predictions.
func (c *Calibrator) EvaluateActive(ctx context.Context) (models.CalibrationReport, error) {
	model := c.active.Load()
	if model == nil {
		return models.CalibrationReport{}, fmt.Errorf("no active calibration model: %w", models.ErrNotFound)
	}

	now := c.now()
	from := now.AddDate(0, 0, -model.TestWindowDays)
	outcomes, err := c.predictions.ListWithOutcomes(ctx, from, now)
	if err != nil {
		return models.CalibrationReport{}, fmt.Errorf("failed to load settled predictions: %w", err)
	}

	report, err := calibration.BuildReport(outcomes, c.cfg.ECEBins)
	if err != nil {
		return models.CalibrationReport{}, err
	}
	report.CalibrationVersion = model.ID

	metrics.UpdateReportMetrics(report.ECE, report.BrierScore, report.LogLoss, report.Accuracy)
	metrics.UpdateActiveModel(now.Sub(model.FittedAt).Seconds(), model.ValidationGames)
	c.calLogger.LogReport(model.ID.String(), report.Games, report.ECE, report.BrierScore, report.LogLoss, report.Accuracy)

	return report, nil
}

func (c *Calibrator) fitConfig() calibration.FitConfig {
	return calibration.FitConfig{
		ValidationDays:       c.cfg.ValidationWindowDays,
		TestDays:             c.cfg.TestWindowDays,
		TemperatureMin:       c.cfg.TemperatureMin,
		TemperatureMax:       c.cfg.TemperatureMax,
		TargetHomeWinRate:    c.cfg.TargetHomeWinRate,
		ConfidenceCap:        c.cfg.ConfidenceCap,
		EarlySeasonCap:       c.cfg.EarlySeasonConfidenceCap,
		EarlySeasonThreshold: c.cfg.EarlySeasonGamesThreshold,
		EarlySeasonFactors:   c.cfg.EarlySeasonFactors,
	}
}
