// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/migrations"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/aggregates"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/connections"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/samples"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// Connections returns a connections.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Connections(db dbx.DBTX) connections.Repository {
	return connections.NewPostgresRepository(db)
}

// Samples returns a samples.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Samples(db dbx.DBTX) samples.Repository {
	return samples.NewPostgresRepository(db)
}

// Aggregates returns an aggregates.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Aggregates(db dbx.DBTX) aggregates.Repository {
	return aggregates.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
