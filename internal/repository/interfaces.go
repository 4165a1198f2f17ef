package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/hoopcal/internal/models"
)

// GameRepository defines the interface for settled game data access
type GameRepository interface {
	Create(ctx context.Context, game *models.GameRecord) error
	CreateBatch(ctx context.Context, games []models.GameRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GameRecord, error)
	// ListChronological returns settled games with dates in (from, to],
	// ordered by game date ascending.
	ListChronological(ctx context.Context, from, to time.Time) ([]models.GameRecord, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// CalibrationModelRepository defines the interface for fitted model persistence
type CalibrationModelRepository interface {
	Create(ctx context.Context, model *models.CalibrationModel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationModel, error)
	// GetActive returns the single model currently serving predictions.
	GetActive(ctx context.Context) (*models.CalibrationModel, error)
	// Activate marks the given model active and deactivates all others
	// in one transaction.
	Activate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit int) ([]*models.CalibrationModel, error)
}

// PredictionRepository defines the interface for calibrated prediction storage
type PredictionRepository interface {
	InsertBatch(ctx context.Context, predictions []models.CalibratedPrediction, confidenceThreshold float64) error
	GetByGameID(ctx context.Context, gameID uuid.UUID) ([]models.CalibratedPrediction, error)
	// ListWithOutcomes joins stored predictions against settled games with
	// dates in (from, to], the input for calibration reports.
	ListWithOutcomes(ctx context.Context, from, to time.Time) ([]models.PredictionOutcome, error)
}
