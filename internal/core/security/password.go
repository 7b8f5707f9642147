package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidhub/account-service/internal/core/domain"
)

// DefaultBcryptCost matches the salt rounds accounts were originally hashed with.
const DefaultBcryptCost = 10

var (
	ErrEmptyPassword   = fmt.Errorf("%w: password must not be empty", domain.ErrValidation)
	ErrPasswordTooLong = fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
)

// BcryptHasher implements domain.PasswordHasher. Every Hash call draws a
// fresh salt, so hashing the same plaintext twice yields different output.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given work factor. Costs outside
// bcrypt's accepted range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("%w: hash password: %v", domain.ErrInternal, err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
