package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/auth"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/repomanager"
)

// GraphService maintains the edges between monitored users and responsible
// parties and answers who may observe whom.
type GraphService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewGraphService(db *sql.DB, m repomanager.RepositoryManager) *GraphService {
	return &GraphService{db: db, repomanager: m}
}

// Connect links userID to partyID after checking both roles. Connecting an
// already connected pair succeeds and reports created=false.
func (s *GraphService) Connect(ctx context.Context, userID, partyID int64) (bool, error) {
	if err := checkPair(userID, partyID); err != nil {
		return false, err
	}

	accounts := s.repomanager.Accounts(s.db)

	if err := requireRole(ctx, accounts.GetByID, userID, models.RoleMonitoredUser, common.ErrorUserRoleMismatch); err != nil {
		return false, err
	}
	if err := requireRole(ctx, accounts.GetByID, partyID, models.RoleResponsibleParty, common.ErrorPartyRoleMismatch); err != nil {
		return false, err
	}

	created, err := s.repomanager.Connections(s.db).Create(ctx, userID, partyID)
	if err != nil {
		return false, storeErr(err)
	}
	return created, nil
}

// Disconnect removes the edge if present.
func (s *GraphService) Disconnect(ctx context.Context, userID, partyID int64) error {
	if err := checkPair(userID, partyID); err != nil {
		return err
	}
	if err := s.repomanager.Connections(s.db).Delete(ctx, userID, partyID); err != nil {
		return storeErr(err)
	}
	return nil
}

// ResponsiblePartiesOf lists the parties connected to userID, oldest edge first.
func (s *GraphService) ResponsiblePartiesOf(ctx context.Context, userID int64) ([]*models.Account, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: userId must be positive", common.ErrorInvalidInput)
	}
	parties, err := s.repomanager.Connections(s.db).ListParties(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return parties, nil
}

// UsersOf lists the monitored users connected to partyID, oldest edge first.
func (s *GraphService) UsersOf(ctx context.Context, partyID int64) ([]*models.Account, error) {
	if partyID <= 0 {
		return nil, fmt.Errorf("%w: partyId must be positive", common.ErrorInvalidInput)
	}
	users, err := s.repomanager.Connections(s.db).ListUsers(ctx, partyID)
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

// AuthorizeObserver decides whether caller may read data of userID: either
// it is the user itself or a responsible party connected to it.
func (s *GraphService) AuthorizeObserver(ctx context.Context, caller auth.Identity, userID int64) error {
	if caller.AccountID == userID {
		return nil
	}
	if caller.Role != models.RoleResponsibleParty {
		return common.ErrorNotConnected
	}
	ok, err := s.repomanager.Connections(s.db).Exists(ctx, userID, caller.AccountID)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return common.ErrorNotConnected
	}
	return nil
}

func checkPair(userID, partyID int64) error {
	if userID <= 0 || partyID <= 0 {
		return fmt.Errorf("%w: userId and partyId must be positive", common.ErrorInvalidInput)
	}
	return nil
}

func requireRole(ctx context.Context, get func(context.Context, int64) (*models.Account, error), id int64, want models.Role, mismatch error) error {
	account, err := get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: account %d", common.ErrorNotFound, id)
		}
		return storeErr(err)
	}
	if account.Role != want {
		return mismatch
	}
	return nil
}
