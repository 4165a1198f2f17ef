package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/hoopcal/internal/config"
)

// requiredTables are the tables the prediction pipeline reads and writes.
// Migrations live under migrations/ and are applied with the migrate CLI.
var requiredTables = []string{
	"games",
	"calibration_models",
	"predictions",
}

// Initialize creates a database connection pool and verifies the schema
// is in place before the service starts serving.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	missing, err := db.missingTables(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if len(missing) > 0 {
		db.Close()
		return nil, fmt.Errorf(
			"missing tables [%s]: run migrations with: migrate -path migrations -database \"%s\" up",
			strings.Join(missing, ", "),
			cfg.GetDatabaseDSN(),
		)
	}

	return db, nil
}

func (db *DB) missingTables(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range requiredTables {
		var exists bool
		err := db.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table,
		).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
