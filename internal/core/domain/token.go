package domain

import "time"

// TokenKind distinguishes the two signed credentials issued to an account.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenClaims is the decoded payload of a verified token. Refresh tokens only
// carry AccountID; the profile fields are populated for access tokens.
type TokenClaims struct {
	Kind      TokenKind
	TokenID   string
	AccountID string
	Username  string
	Email     string
	FullName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
