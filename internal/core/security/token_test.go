package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhub/account-service/internal/core/domain"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
	}
}

func testAccount() *domain.Account {
	return &domain.Account{ID: "acc-1", Username: "ab", Email: "a@x.com", FullName: "A B"}
}

func TestNewTokenIssuer_ConfigErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*TokenConfig){
		"missing access secret":  func(c *TokenConfig) { c.AccessSecret = "" },
		"missing refresh secret": func(c *TokenConfig) { c.RefreshSecret = "" },
		"shared secret":          func(c *TokenConfig) { c.RefreshSecret = c.AccessSecret },
		"zero access ttl":        func(c *TokenConfig) { c.AccessTTL = 0 },
		"negative refresh ttl":   func(c *TokenConfig) { c.RefreshTTL = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testTokenConfig()
			mutate(&cfg)
			_, err := NewTokenIssuer(cfg)
			assert.ErrorIs(t, err, ErrTokenConfig)
		})
	}
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	tok, exp, err := issuer.Issue(domain.AccessToken, testAccount())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := issuer.Verify(domain.AccessToken, tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "ab", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "A B", claims.FullName)
	assert.NotEmpty(t, claims.TokenID)
}

func TestTokenIssuer_RefreshCarriesOnlyID(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	tok, _, err := issuer.Issue(domain.RefreshToken, testAccount())
	require.NoError(t, err)

	raw := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tok, raw, func(*jwt.Token) (interface{}, error) {
		return []byte("refresh-secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", raw["id"])
	assert.NotContains(t, raw, "username")
	assert.NotContains(t, raw, "email")

	claims, err := issuer.Verify(domain.RefreshToken, tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Empty(t, claims.Username)
}

func TestTokenIssuer_KindsUseIndependentSecrets(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	access, _, err := issuer.Issue(domain.AccessToken, testAccount())
	require.NoError(t, err)
	refresh, _, err := issuer.Issue(domain.RefreshToken, testAccount())
	require.NoError(t, err)

	_, err = issuer.Verify(domain.RefreshToken, access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = issuer.Verify(domain.AccessToken, refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	tok, _, err := issuer.Issue(domain.RefreshToken, testAccount())
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(domain.RefreshToken, tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	_, err = issuer.Verify(domain.AccessToken, "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = issuer.Verify(domain.AccessToken, "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"id":  "acc-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(domain.AccessToken, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_PairsAreDistinct(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	first, err := issuer.IssuePair(testAccount())
	require.NoError(t, err)
	second, err := issuer.IssuePair(testAccount())
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, first.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenIssuer_IssueWithoutID(t *testing.T) {
	t.Parallel()
	issuer, err := NewTokenIssuer(testTokenConfig())
	require.NoError(t, err)

	_, _, err = issuer.Issue(domain.AccessToken, &domain.Account{})
	assert.Error(t, err)
}
