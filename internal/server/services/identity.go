package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/cryptox"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/auth"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/config"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/repositories/repomanager"
)

// RegisterInput is everything needed to create an account.
type RegisterInput struct {
	FullName string      `json:"fullName" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Phone    string      `json:"phone" validate:"required"`
	Password string      `json:"password" validate:"required"`
	Username string      `json:"username" validate:"required"`
	Role     models.Role `json:"role" validate:"required,oneof=1 2"`
}

func (in *RegisterInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Username = strings.TrimSpace(in.Username)
}

// IdentityService owns accounts: registration, credential checks and lookups.
type IdentityService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	hasher            cryptox.PasswordHasher
	jwtSecret         []byte
	assertionValidity time.Duration
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:                db,
		repomanager:       m,
		hasher:            hasher,
		jwtSecret:         []byte(cfg.SecretKey),
		assertionValidity: cfg.AccessTokenValidityDuration,
	}
}

// Register creates an account. The email/username pre-check only gives a
// friendlier early answer; the unique constraints decide races.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	in.normalize()
	if err := validateInput(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)

	exists, err := repo.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, storeErr(err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email or username", common.ErrorConflict)
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, cryptox.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account, err := repo.Create(ctx, &models.Account{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	public := account.Public()
	return &public, nil
}

// Authenticate checks the password for email and returns the account
// together with a signed identity assertion.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*models.Account, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", common.ErrorInvalidInput)
	}

	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, "", storeErr(err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}

	assertion, err := auth.GenerateToken(account.ID, account.Role, s.jwtSecret, s.assertionValidity)
	if err != nil {
		return nil, "", fmt.Errorf("error signing assertion: %w", err)
	}

	public := account.Public()
	return &public, assertion, nil
}

func (s *IdentityService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorInvalidInput)
	}
	account, err := s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	public := account.Public()
	return &public, nil
}

func (s *IdentityService) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", common.ErrorInvalidInput)
	}
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	public := account.Public()
	return &public, nil
}
