// Package cryptox wraps the one-way password hashing used for account
// credentials.
package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor accounts were historically created with.
const DefaultCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrMismatch is returned by Compare when the password does not match the hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong is returned by Hash for inputs over MaxPasswordBytes.
	ErrPasswordTooLong = fmt.Errorf("password longer than %d bytes", MaxPasswordBytes)
)

// PasswordHasher turns a plaintext password into a salted one-way hash and
// checks candidates against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher is a PasswordHasher with a configurable work factor. bcrypt
// embeds a fresh random salt in every hash it produces.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher validates cost against bcrypt's accepted range.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
