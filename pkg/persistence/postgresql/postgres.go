// Package postgresql provides PostgreSQL persistence for saved graphs.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/oneapi/pkg/persistence"
	"github.com/dukex/oneapi/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, owner, name string, data []byte, overwrite bool) (string, error) {
	owner, filename, err := persistence.Key(owner, name)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", owner, name, err)
	}

	query := `INSERT INTO saved_workflows (owner, name, graph) VALUES ($1, $2, $3)
		ON CONFLICT (owner, name) DO NOTHING`
	if overwrite {
		query = `INSERT INTO saved_workflows (owner, name, graph) VALUES ($1, $2, $3)
			ON CONFLICT (owner, name) DO UPDATE SET graph = EXCLUDED.graph, updated_at = NOW()`
	}

	result, err := p.db.ExecContext(ctx, query, owner, filename, string(data))
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to save workflow", "owner", owner, "name", filename, "error", err)

		return "", fmt.Errorf("failed to save workflow %s: %w", filename, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return "", persistence.NewWorkflowError("Save", owner, filename, persistence.ErrWorkflowAlreadyExists)
	}

	return filename, nil
}

func (p *Persistence) Workflow(ctx context.Context, owner, name string) ([]byte, error) {
	owner, filename, err := persistence.Key(owner, name)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", owner, name, err)
	}

	var graph string

	err = p.db.QueryRowContext(ctx,
		"SELECT graph FROM saved_workflows WHERE owner = $1 AND name = $2", owner, filename,
	).Scan(&graph)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("Load", owner, filename, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to load workflow %s: %w", filename, err)
	}

	return []byte(graph), nil
}

func (p *Persistence) Workflows(ctx context.Context, header string) ([]string, error) {
	owner, err := persistence.CheckOwner(header)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", header, "", err)
	}

	rows, err := p.db.QueryContext(ctx,
		"SELECT name FROM saved_workflows WHERE owner = $1 ORDER BY name", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)

	for rows.Next() {
		var name string

		err := rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow name: %w", err)
		}

		names = append(names, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate workflows: %w", err)
	}

	return names, nil
}
