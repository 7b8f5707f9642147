package ports

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vidhub/account-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to Register.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *multipart.FileHeader // required
	CoverImage *multipart.FileHeader // optional
}

// LoginInput requires a password and at least one of Email or Username.
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// LoginResult bundles the public account with a freshly issued token pair.
type LoginResult struct {
	Account *domain.PublicAccount
	Tokens  *domain.TokenPair
}

// LogoutInput identifies the authenticated caller. AccessTokenID and
// AccessExpiresAt are optional; when set the access token is revoked too.
type LogoutInput struct {
	AccountID       string
	AccessTokenID   string
	AccessExpiresAt time.Time
}

// SessionService defines the account and session use cases.
type SessionService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.PublicAccount, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, in LogoutInput) error
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	CurrentAccount(ctx context.Context, accountID string) (*domain.PublicAccount, error)
}

// TokenIssuer mints and verifies signed tokens.
type TokenIssuer interface {
	IssuePair(account *domain.Account) (*domain.TokenPair, error)
	Verify(kind domain.TokenKind, token string) (*domain.TokenClaims, error)
}

// MediaUploader stores an uploaded file externally and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

// TokenRevoker records access tokens that must be rejected before they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// KeySerializer runs fn so that calls sharing a key never overlap.
type KeySerializer interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
