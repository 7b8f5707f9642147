package domain

import (
	"strings"
	"time"
)

// PasswordHasher is the one-way hashing primitive an Account delegates to.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Account is the persisted user record. PasswordHash and CurrentRefreshToken
// never leave the core; use Public for anything handed to a caller.
type Account struct {
	ID                  string
	Username            string
	Email               string
	FullName            string
	PasswordHash        string
	AvatarURL           string
	CoverImageURL       string
	CurrentRefreshToken *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PublicAccount is the projection of Account with every secret field removed.
type PublicAccount struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SetPassword hashes plaintext and stores the result. It is the only way
// PasswordHash gets written, so every assignment is hashed exactly once.
// Hasher errors are returned as-is so their messages reach the caller.
func (a *Account) SetPassword(hasher PasswordHasher, plaintext string) error {
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func (a *Account) CheckPassword(hasher PasswordHasher, plaintext string) bool {
	if a.PasswordHash == "" {
		return false
	}
	return hasher.Verify(plaintext, a.PasswordHash)
}

// HasRefreshToken reports whether token is exactly the live refresh token.
func (a *Account) HasRefreshToken(token string) bool {
	return a.CurrentRefreshToken != nil && token != "" && *a.CurrentRefreshToken == token
}

// Public returns the caller-facing view of the account, which never carries
// the password hash or the refresh token.
func (a *Account) Public() *PublicAccount {
	if a == nil {
		return nil
	}
	return &PublicAccount{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// NormalizeKey lower-cases and trims a username or email so lookups and
// unique indexes agree.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
