// Package auth mints and verifies the identity assertion returned by login.
// The assertion only says who the caller is; there are no sessions or
// refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/common"
	"github.com/dmitrijs2005/pulsekeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = fmt.Errorf("%w: token expired", common.ErrorUnauthorized)
	ErrTokenInvalid = fmt.Errorf("%w: invalid token", common.ErrorUnauthorized)
)

// Claims carries the account id in the standard subject claim plus the role.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Identity is the verified caller extracted from an assertion.
type Identity struct {
	AccountID int64
	Role      models.Role
}

func GenerateToken(accountID int64, role models.Role, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the caller identity.
// Every failure wraps common.ErrorUnauthorized.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: bad role", ErrTokenInvalid)
	}

	return &Identity{AccountID: id, Role: claims.Role}, nil
}
