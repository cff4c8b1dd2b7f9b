package accounts

import (
	"context"

	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}
