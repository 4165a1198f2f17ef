package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/hoopcal/internal/database"
	"github.com/yourusername/hoopcal/internal/models"
)

// PostgresGameRepository implements GameRepository for PostgreSQL
type PostgresGameRepository struct {
	db *database.DB
}

// NewPostgresGameRepository creates a new game repository
func NewPostgresGameRepository(db *database.DB) GameRepository {
	return &PostgresGameRepository{db: db}
}

const gameColumns = `id, season, game_date, home_team, away_team, home_score, away_score,
	neutral_site, tournament, rivalry, home_games_played, away_games_played`

// Create inserts a settled game
func (r *PostgresGameRepository) Create(ctx context.Context, game *models.GameRecord) error {
	query := `
		INSERT INTO games (` + gameColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		game.ID, game.Season, game.GameDate, game.HomeTeam, game.AwayTeam,
		game.HomeScore, game.AwayScore, game.NeutralSite, game.Tournament,
		game.Rivalry, game.HomeGamesPlayed, game.AwayGamesPlayed,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// CreateBatch inserts settled games in a single transaction
func (r *PostgresGameRepository) CreateBatch(ctx context.Context, games []models.GameRecord) error {
	if len(games) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO games (` + gameColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING
		`
		for _, game := range games {
			if _, err := tx.Exec(ctx, query,
				game.ID, game.Season, game.GameDate, game.HomeTeam, game.AwayTeam,
				game.HomeScore, game.AwayScore, game.NeutralSite, game.Tournament,
				game.Rivalry, game.HomeGamesPlayed, game.AwayGamesPlayed,
			); err != nil {
				return fmt.Errorf("failed to insert game %s: %w", game.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a game by ID
func (r *PostgresGameRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game := &models.GameRecord{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&game.ID, &game.Season, &game.GameDate, &game.HomeTeam, &game.AwayTeam,
		&game.HomeScore, &game.AwayScore, &game.NeutralSite, &game.Tournament,
		&game.Rivalry, &game.HomeGamesPlayed, &game.AwayGamesPlayed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// ListChronological returns games in (from, to] ordered by game date
func (r *PostgresGameRepository) ListChronological(ctx context.Context, from, to time.Time) ([]models.GameRecord, error) {
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE game_date > $1 AND game_date <= $2
		ORDER BY game_date ASC, id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []models.GameRecord
	for rows.Next() {
		var game models.GameRecord
		if err := rows.Scan(
			&game.ID, &game.Season, &game.GameDate, &game.HomeTeam, &game.AwayTeam,
			&game.HomeScore, &game.AwayScore, &game.NeutralSite, &game.Tournament,
			&game.Rivalry, &game.HomeGamesPlayed, &game.AwayGamesPlayed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

// CountSince returns the number of settled games with dates after since
func (r *PostgresGameRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM games WHERE game_date > $1`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return count, nil
}
