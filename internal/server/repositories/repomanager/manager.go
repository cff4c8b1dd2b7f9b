package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/aggregates"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/connections"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/samples"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Connections(db dbx.DBTX) connections.Repository
	Samples(db dbx.DBTX) samples.Repository
	Aggregates(db dbx.DBTX) aggregates.Repository
}
