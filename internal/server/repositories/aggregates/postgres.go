// Package aggregates stores the per-user, per-day running statistics.
package aggregates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/dbx"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

const aggregateColumns = `user_id, day, mean_value, min_value, max_value, sample_count, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert folds value into the aggregate for (userID, day) in a single
// statement. The first sample of a day creates the row; later ones update
// it in place under the row lock taken by ON CONFLICT, so concurrent
// writers never read the same prior state.
func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, day timex.Date, value float64) (*models.DailyAggregate, error) {
	query := `
		INSERT INTO daily_aggregates AS d (user_id, day, mean_value, min_value, max_value, sample_count, updated_at)
		VALUES ($1, $2, $3, $3, $3, 1, now())
		ON CONFLICT (user_id, day)
		DO UPDATE SET
			mean_value = (d.mean_value + EXCLUDED.mean_value) / 2,
			min_value = LEAST(d.min_value, EXCLUDED.min_value),
			max_value = GREATEST(d.max_value, EXCLUDED.max_value),
			sample_count = d.sample_count + 1,
			updated_at = now()
		RETURNING ` + aggregateColumns

	agg, err := scanOne(r.db.QueryRowContext(ctx, query, userID, day, value))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return agg, nil
}

// Latest returns the aggregate with the greatest day for userID.
func (r *PostgresRepository) Latest(ctx context.Context, userID int64) (*models.DailyAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM daily_aggregates
		WHERE user_id = $1
		ORDER BY day DESC
		LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *PostgresRepository) ForDay(ctx context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM daily_aggregates
		WHERE user_id = $1 AND day = $2`
	return r.getOne(ctx, query, userID, day)
}

// Recent returns at most n aggregates for userID, newest day first.
func (r *PostgresRepository) Recent(ctx context.Context, userID int64, n int) ([]*models.DailyAggregate, error) {
	query := `SELECT ` + aggregateColumns + ` FROM daily_aggregates
		WHERE user_id = $1
		ORDER BY day DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.DailyAggregate, 0, n)
	for rows.Next() {
		agg, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.DailyAggregate, error) {
	agg, err := scanOne(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return agg, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(s scanner) (*models.DailyAggregate, error) {
	var a models.DailyAggregate
	if err := s.Scan(&a.UserID, &a.Day, &a.Mean, &a.Min, &a.Max, &a.SampleCount, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
