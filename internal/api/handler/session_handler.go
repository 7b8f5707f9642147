package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidhub/account-service/internal/api/metrics"
	"github.com/vidhub/account-service/internal/api/middleware"
	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/ports"
)

const refreshTokenCookie = "refreshToken"

// SessionHandler handles HTTP requests for account and session operations.
type SessionHandler struct {
	service       ports.SessionService
	secureCookies bool
}

func NewSessionHandler(service ports.SessionService, secureCookies bool) *SessionHandler {
	return &SessionHandler{service: service, secureCookies: secureCookies}
}

// --- Request / Response types ---

type registerRequest struct {
	FullName string `form:"fullName" json:"fullName" validate:"max=100"`
	Email    string `form:"email"    json:"email"    validate:"max=254"`
	Username string `form:"username" json:"username" validate:"max=50"`
	Password string `form:"password" json:"password" validate:"max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"max=254"`
	Username string `json:"username" validate:"max=50"`
	Password string `json:"password" validate:"max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	User         *domain.PublicAccount `json:"user"`
	AccessToken  string                `json:"accessToken"`
	RefreshToken string                `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
//
// @Summary      Register a new account
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        fullName    formData  string  true   "Display name"
// @Param        email       formData  string  true   "Email address"
// @Param        username    formData  string  true   "Username"
// @Param        password    formData  string  true   "Password"
// @Param        avatar      formData  file    true   "Avatar image"
// @Param        coverImage  formData  file    false  "Cover image"
// @Success      201  {object}  apiResponse{data=domain.PublicAccount}
// @Failure      400  {object}  api.errorResponse
// @Failure      409  {object}  api.errorResponse
// @Failure      500  {object}  api.errorResponse
// @Router       /api/v1/users/register [post]
func (h *SessionHandler) Register(c echo.Context) (err error) {
	timer := prometheus.NewTimer(metrics.SessionOperationDuration.WithLabelValues("register"))
	defer timer.ObserveDuration()
	defer func() { metrics.RegistrationsTotal.WithLabelValues(outcome(err, "created")).Inc() }()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	avatar, err := optionalFile(c, "avatar")
	if err != nil {
		return err
	}
	cover, err := optionalFile(c, "coverImage")
	if err != nil {
		return err
	}

	account, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, account, "User registered successfully")
}

// Login handles POST /api/v1/users/login.
//
// @Summary      Log in with email or username
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  apiResponse{data=loginResponse}
// @Failure      400   {object}  api.errorResponse
// @Failure      401   {object}  api.errorResponse
// @Failure      404   {object}  api.errorResponse
// @Router       /api/v1/users/login [post]
func (h *SessionHandler) Login(c echo.Context) (err error) {
	timer := prometheus.NewTimer(metrics.SessionOperationDuration.WithLabelValues("login"))
	defer timer.ObserveDuration()
	defer func() { metrics.LoginsTotal.WithLabelValues(outcome(err, "success")).Inc() }()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.service.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setSessionCookies(c, res.Tokens)
	return respond(c, http.StatusOK, loginResponse{
		User:         res.Account,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
//
// @Summary      Log out the current session
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse
// @Failure      401  {object}  api.errorResponse
// @Router       /api/v1/users/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	timer := prometheus.NewTimer(metrics.SessionOperationDuration.WithLabelValues("logout"))
	defer timer.ObserveDuration()

	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	if err := h.service.Logout(c.Request().Context(), ports.LogoutInput{
		AccountID:       sess.accountID,
		AccessTokenID:   sess.tokenID,
		AccessExpiresAt: sess.expiresAt,
	}); err != nil {
		return err
	}

	metrics.LogoutsTotal.Inc()
	h.clearSessionCookies(c)
	return respond(c, http.StatusOK, nil, "User logged out")
}

// RefreshToken handles POST /api/v1/users/refresh-token.
//
// @Summary      Exchange a refresh token for a new token pair
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when not sent as a cookie"
// @Success      200   {object}  apiResponse{data=tokensResponse}
// @Failure      401   {object}  api.errorResponse
// @Router       /api/v1/users/refresh-token [post]
func (h *SessionHandler) RefreshToken(c echo.Context) (err error) {
	timer := prometheus.NewTimer(metrics.SessionOperationDuration.WithLabelValues("refresh"))
	defer timer.ObserveDuration()
	defer func() { metrics.RefreshesTotal.WithLabelValues(outcome(err, "success")).Inc() }()

	token := ""
	if cookie, cerr := c.Cookie(refreshTokenCookie); cerr == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := c.Bind(&req); err != nil {
			return fmt.Errorf("%w: unauthorized request", domain.ErrUnauthorized)
		}
		token = req.RefreshToken
	}

	pair, err := h.service.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, pair)
	return respond(c, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}

// CurrentUser handles GET /api/v1/users/current-user.
//
// @Summary      Get the authenticated account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  apiResponse{data=domain.PublicAccount}
// @Failure      401  {object}  api.errorResponse
// @Router       /api/v1/users/current-user [get]
func (h *SessionHandler) CurrentUser(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}

	account, err := h.service.CurrentAccount(c.Request().Context(), sess.accountID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, account, "Current user fetched successfully")
}

// --- helpers ---

// optionalFile returns nil when the field is absent or the request is not multipart.
func optionalFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	switch {
	case err == nil:
		return fh, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unreadable %s upload", domain.ErrValidation, field)
	}
}

func (h *SessionHandler) setSessionCookies(c echo.Context, pair *domain.TokenPair) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	c.SetCookie(h.cookie(refreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *SessionHandler) clearSessionCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, refreshTokenCookie} {
		ck := h.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (h *SessionHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// outcome maps an operation error onto a metrics result label.
func outcome(err error, success string) string {
	switch {
	case err == nil:
		return success
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
