// Package samples stores the raw, append-only heart-rate history.
package samples

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, sample *models.Sample) (*models.Sample, error) {
	query :=
		`INSERT INTO samples (user_id, value, observed_at)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `
	if err := r.db.QueryRowContext(ctx, query, sample.UserID, sample.Value, sample.ObservedAt).Scan(&sample.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return sample, nil
}

// ListBetween returns the samples of userID observed in [from, to), oldest first.
func (r *PostgresRepository) ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.Sample, error) {
	query := `
		SELECT id, user_id, value, observed_at FROM samples
		WHERE user_id = $1 AND observed_at >= $2 AND observed_at < $3
		ORDER BY observed_at, id
		`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Sample, 0)
	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.ID, &s.UserID, &s.Value, &s.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
