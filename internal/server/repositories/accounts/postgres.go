// Package accounts stores registered identities in PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

const selectAccount = `SELECT id, full_name, email, phone, username, password_hash, role, created_at FROM accounts`

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account and fills in ID and CreatedAt. A unique
// violation on email or username is reported as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (full_name, email, phone, username, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.FullName, account.Email, account.Phone, account.Username, account.PasswordHash, account.Role,
	).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: email or username", common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1 OR username = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.FullName, &a.Email, &a.Phone, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
