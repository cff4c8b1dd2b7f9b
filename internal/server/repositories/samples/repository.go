package samples

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, sample *models.Sample) (*models.Sample, error)
	ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.Sample, error)
}
