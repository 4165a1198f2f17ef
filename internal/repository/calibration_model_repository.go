package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/models"
)

// PostgresCalibrationModelRepository implements CalibrationModelRepository
// for PostgreSQL. Fitted parameters are stored as a single JSONB blob so the
// schema does not change when the parameter set evolves.
type PostgresCalibrationModelRepository struct {
	db *database.DB
}

// NewPostgresCalibrationModelRepository creates a new calibration model repository
func NewPostgresCalibrationModelRepository(db *database.DB) CalibrationModelRepository {
	return &PostgresCalibrationModelRepository{db: db}
}

// Create inserts a fitted calibration model
func (r *PostgresCalibrationModelRepository) Create(ctx context.Context, model *models.CalibrationModel) error {
	params, err := model.Parameters()
	if err != nil {
		return fmt.Errorf("failed to serialize model parameters: %w", err)
	}

	query := `
		INSERT INTO calibration_models (id, fitted_at, parameters, validation_games, active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.GetPool().Exec(ctx, query,
		model.ID, model.FittedAt, params, model.ValidationGames, model.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create calibration model: %w", err)
	}
	return nil
}

// GetByID retrieves a calibration model by ID
func (r *PostgresCalibrationModelRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CalibrationModel, error) {
	query := `
		SELECT id, fitted_at, parameters, validation_games, active
		FROM calibration_models WHERE id = $1
	`
	return r.scanModel(r.db.GetPool().QueryRow(ctx, query, id))
}

// GetActive retrieves the single model currently serving predictions
func (r *PostgresCalibrationModelRepository) GetActive(ctx context.Context) (*models.CalibrationModel, error) {
	query := `
		SELECT id, fitted_at, parameters, validation_games, active
		FROM calibration_models WHERE active = true
	`
	return r.scanModel(r.db.GetPool().QueryRow(ctx, query))
}

// Activate marks the given model active and deactivates all others
func (r *PostgresCalibrationModelRepository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE calibration_models SET active = false WHERE active = true`,
		); err != nil {
			return fmt.Errorf("failed to deactivate models: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE calibration_models SET active = true WHERE id = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("failed to activate model: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// List returns the most recently fitted models, newest first
func (r *PostgresCalibrationModelRepository) List(ctx context.Context, limit int) ([]*models.CalibrationModel, error) {
	query := `
		SELECT id, fitted_at, parameters, validation_games, active
		FROM calibration_models
		ORDER BY fitted_at DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration models: %w", err)
	}
	defer rows.Close()

	var result []*models.CalibrationModel
	for rows.Next() {
		model, err := r.scanModel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, model)
	}
	return result, rows.Err()
}

func (r *PostgresCalibrationModelRepository) scanModel(row pgx.Row) (*models.CalibrationModel, error) {
	model := &models.CalibrationModel{}
	var params json.RawMessage
	err := row.Scan(&model.ID, &model.FittedAt, &params, &model.ValidationGames, &model.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan calibration model: %w", err)
	}
	if err := model.SetParameters(params); err != nil {
		return nil, fmt.Errorf("failed to restore model parameters: %w", err)
	}
	return model, nil
}
