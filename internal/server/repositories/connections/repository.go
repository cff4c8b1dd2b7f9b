package connections

import (
	"context"

	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID, partyID int64) (bool, error)
	Delete(ctx context.Context, userID, partyID int64) error
	Exists(ctx context.Context, userID, partyID int64) (bool, error)
	ListParties(ctx context.Context, userID int64) ([]*models.Account, error)
	ListUsers(ctx context.Context, partyID int64) ([]*models.Account, error)
}
