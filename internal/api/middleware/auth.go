package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/ports"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextAccountID      = "account_id"
	ContextTokenID        = "token_id"
	ContextTokenExpiresAt = "token_expires_at"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// AccessVerifier is the subset of the token issuer the middleware needs.
type AccessVerifier interface {
	Verify(kind domain.TokenKind, token string) (*domain.TokenClaims, error)
}

// Auth validates the access token and injects its claims into the context.
// The token is read from the accessToken cookie first, then from the
// Authorization bearer header. revoker may be nil.
func Auth(verifier AccessVerifier, revoker ports.TokenRevoker, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := accessToken(c)
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(domain.AccessToken, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			if revoker != nil {
				revoked, err := revoker.IsRevoked(c.Request().Context(), claims.TokenID)
				if err != nil {
					log.Error().Err(err).Str("account_id", claims.AccountID).Msg("revocation lookup failed")
					return echo.NewHTTPError(http.StatusUnauthorized, "unable to verify access token")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "access token has been revoked")
				}
			}

			c.Set(ContextAccountID, claims.AccountID)
			c.Set(ContextTokenID, claims.TokenID)
			c.Set(ContextTokenExpiresAt, claims.ExpiresAt)

			return next(c)
		}
	}
}

func accessToken(c echo.Context) (string, error) {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized request")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
