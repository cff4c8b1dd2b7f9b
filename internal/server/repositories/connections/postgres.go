// Package connections stores the edges between monitored users and their
// responsible parties.
package connections

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

// PostgresRepository implements edge storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the edge unless it already exists. It reports whether a new
// row was written; the unique (user_id, party_id) constraint guarantees at
// most one edge per pair even under concurrent calls.
func (r *PostgresRepository) Create(ctx context.Context, userID, partyID int64) (bool, error) {
	query :=
		`INSERT INTO connections (user_id, party_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, party_id) DO NOTHING
		 `
	res, err := r.db.ExecContext(ctx, query, userID, partyID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// Delete removes the edge. Removing an edge that does not exist is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID, partyID int64) error {
	query := `DELETE FROM connections WHERE user_id = $1 AND party_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, partyID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, partyID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM connections WHERE user_id = $1 AND party_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, partyID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// ListParties returns the responsible parties of userID in edge insertion order.
func (r *PostgresRepository) ListParties(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `
		SELECT a.id, a.full_name, a.email, a.phone, a.username, a.role, a.created_at
		FROM connections c JOIN accounts a ON a.id = c.party_id
		WHERE c.user_id = $1
		ORDER BY c.id
		`
	return r.list(ctx, query, userID)
}

// ListUsers returns the monitored users of partyID in edge insertion order.
func (r *PostgresRepository) ListUsers(ctx context.Context, partyID int64) ([]*models.Account, error) {
	query := `
		SELECT a.id, a.full_name, a.email, a.phone, a.username, a.role, a.created_at
		FROM connections c JOIN accounts a ON a.id = c.user_id
		WHERE c.party_id = $1
		ORDER BY c.id
		`
	return r.list(ctx, query, partyID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, id int64) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Account, 0)
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.FullName, &a.Email, &a.Phone, &a.Username, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
