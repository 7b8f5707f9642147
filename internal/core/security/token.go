package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidhub/account-service/internal/core/domain"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenConfig  = errors.New("invalid token configuration")
)

// TokenConfig is fixed at startup and never read from the environment again.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

func (c TokenConfig) validate() error {
	switch {
	case c.AccessSecret == "":
		return fmt.Errorf("%w: access secret is empty", ErrTokenConfig)
	case c.RefreshSecret == "":
		return fmt.Errorf("%w: refresh secret is empty", ErrTokenConfig)
	case c.AccessSecret == c.RefreshSecret:
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrTokenConfig)
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return fmt.Errorf("%w: token TTLs must be positive", ErrTokenConfig)
	}
	return nil
}

// accessClaims is the JWT payload of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// refreshClaims carries only the account id.
type refreshClaims struct {
	jwt.RegisteredClaims
	ID string `json:"id"`
}

// TokenIssuer signs and verifies HS256 access and refresh tokens, each kind
// with its own secret.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer validates cfg once; callers treat the error as fatal.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &TokenIssuer{cfg: cfg, now: time.Now}, nil
}

// Issue mints a signed token of the given kind for account.
func (t *TokenIssuer) Issue(kind domain.TokenKind, account *domain.Account) (string, time.Time, error) {
	if account == nil || account.ID == "" {
		return "", time.Time{}, fmt.Errorf("issue %s token: account id is empty", kind)
	}

	now := t.now().UTC()
	secret, ttl, err := t.params(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	exp := now.Add(ttl).Truncate(jwt.TimePrecision)

	registered := jwt.RegisteredClaims{
		Subject:   account.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	var claims jwt.Claims
	switch kind {
	case domain.AccessToken:
		claims = accessClaims{
			RegisteredClaims: registered,
			ID:               account.ID,
			Username:         account.Username,
			Email:            account.Email,
			FullName:         account.FullName,
		}
	default:
		claims = refreshClaims{RegisteredClaims: registered, ID: account.ID}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// IssuePair mints a fresh access and refresh token for account.
func (t *TokenIssuer) IssuePair(account *domain.Account) (*domain.TokenPair, error) {
	access, accessExp, err := t.Issue(domain.AccessToken, account)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.Issue(domain.RefreshToken, account)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature and expiry and decodes the payload.
func (t *TokenIssuer) Verify(kind domain.TokenKind, token string) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	secret, _, err := t.params(kind)
	if err != nil {
		return nil, err
	}

	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}

	var (
		registered *jwt.RegisteredClaims
		out        = &domain.TokenClaims{Kind: kind}
	)
	switch kind {
	case domain.AccessToken:
		c := &accessClaims{}
		if _, err := jwt.ParseWithClaims(token, c, keyFunc, opts...); err != nil {
			return nil, classify(err)
		}
		registered = &c.RegisteredClaims
		out.AccountID, out.Username, out.Email, out.FullName = c.ID, c.Username, c.Email, c.FullName
	default:
		c := &refreshClaims{}
		if _, err := jwt.ParseWithClaims(token, c, keyFunc, opts...); err != nil {
			return nil, classify(err)
		}
		registered = &c.RegisteredClaims
		out.AccountID = c.ID
	}

	if out.AccountID == "" {
		return nil, ErrTokenInvalid
	}
	out.TokenID = registered.ID
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, nil
}

func (t *TokenIssuer) params(kind domain.TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case domain.AccessToken:
		return []byte(t.cfg.AccessSecret), t.cfg.AccessTTL, nil
	case domain.RefreshToken:
		return []byte(t.cfg.RefreshSecret), t.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown token kind %q", ErrTokenConfig, kind)
	}
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
