package ports

import (
	"context"

	"github.com/vidhub/account-service/internal/core/domain"
)

// AccountRepository is the credential store. Implementations return
// domain.ErrAccountNotFound for missing records and domain.ErrConflict when a
// unique key (username or email) is already taken.
type AccountRepository interface {
	// FindByEmailOrUsername returns the account matching either key. Empty
	// keys are ignored; both empty yields ErrAccountNotFound.
	FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// UpdateRefreshToken unconditionally sets (or clears, when token is nil)
	// the account's current refresh token.
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	// SwapRefreshToken atomically replaces expected with next. It reports
	// false when the stored token no longer equals expected.
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
}
