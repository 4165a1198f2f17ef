package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/models"
)

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) PredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

const predictionColumns = `id, game_id, raw_probability, calibrated_probability,
	predicted_winner, confidence, calibration_version, adjusted_at`

// InsertBatch stores calibrated predictions in a single transaction. The
// meets_threshold flag is materialized at write time against the configured
// confidence threshold.
func (r *PostgresPredictionRepository) InsertBatch(ctx context.Context, predictions []models.CalibratedPrediction, confidenceThreshold float64) error {
	if len(predictions) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO predictions (` + predictionColumns + `, meets_threshold)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		for _, p := range predictions {
			if _, err := tx.Exec(ctx, query,
				p.ID, p.GameID, p.RawProbability, p.CalibratedProbability,
				p.PredictedWinner, p.Confidence, p.CalibrationVersion,
				p.AdjustedAt, p.MeetsThreshold(confidenceThreshold),
			); err != nil {
				return fmt.Errorf("failed to insert prediction for game %s: %w", p.GameID, err)
			}
		}
		return nil
	})
}

// GetByGameID returns all stored predictions for a game, newest first
func (r *PostgresPredictionRepository) GetByGameID(ctx context.Context, gameID uuid.UUID) ([]models.CalibratedPrediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE game_id = $1
		ORDER BY adjusted_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var result []models.CalibratedPrediction
	for rows.Next() {
		var p models.CalibratedPrediction
		if err := rows.Scan(
			&p.ID, &p.GameID, &p.RawProbability, &p.CalibratedProbability,
			&p.PredictedWinner, &p.Confidence, &p.CalibrationVersion, &p.AdjustedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListWithOutcomes joins predictions against settled games in (from, to].
// Games without a stored prediction are skipped; predictions for games that
// have not settled do not appear because every stored game is settled.
func (r *PostgresPredictionRepository) ListWithOutcomes(ctx context.Context, from, to time.Time) ([]models.PredictionOutcome, error) {
	query := `
		SELECT p.id, p.game_id, p.raw_probability, p.calibrated_probability,
			p.predicted_winner, p.confidence, p.calibration_version, p.adjusted_at,
			g.home_score > g.away_score AS home_won
		FROM predictions p
		JOIN games g ON g.id = p.game_id
		WHERE g.game_date > $1 AND g.game_date <= $2
		ORDER BY g.game_date ASC, p.adjusted_at ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction outcomes: %w", err)
	}
	defer rows.Close()

	var result []models.PredictionOutcome
	for rows.Next() {
		var o models.PredictionOutcome
		p := &o.Prediction
		if err := rows.Scan(
			&p.ID, &p.GameID, &p.RawProbability, &p.CalibratedProbability,
			&p.PredictedWinner, &p.Confidence, &p.CalibrationVersion, &p.AdjustedAt,
			&o.HomeWon,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction outcome: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}
