package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vidhub/account-service/internal/api/middleware"
)

// session is the caller identity injected by the Auth middleware.
type session struct {
	accountID string
	tokenID   string
	expiresAt time.Time
}

// ctxSession extracts the auth claims injected by the Auth middleware.
// A missing account id means the route was mounted without the middleware.
func ctxSession(c echo.Context) (session, error) {
	accountID, _ := c.Get(middleware.ContextAccountID).(string)
	if accountID == "" {
		return session{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	tokenID, _ := c.Get(middleware.ContextTokenID).(string)
	expiresAt, _ := c.Get(middleware.ContextTokenExpiresAt).(time.Time)
	return session{accountID: accountID, tokenID: tokenID, expiresAt: expiresAt}, nil
}
