package aggregates

import (
	"context"

	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/timex"
)

type Repository interface {
	Upsert(ctx context.Context, userID int64, day timex.Date, value float64) (*models.DailyAggregate, error)
	Latest(ctx context.Context, userID int64) (*models.DailyAggregate, error)
	ForDay(ctx context.Context, userID int64, day timex.Date) (*models.DailyAggregate, error)
	Recent(ctx context.Context, userID int64, n int) ([]*models.DailyAggregate, error)
}
