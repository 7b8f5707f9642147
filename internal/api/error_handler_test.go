package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/security"
)

func render(t *testing.T, err error) (int, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestErrorHandler_MapsSentinels(t *testing.T) {
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{fmt.Errorf("%w: please provide all the required fields", domain.ErrValidation), http.StatusBadRequest, "please provide all the required fields"},
		{fmt.Errorf("%w: user with this email or username already exists", domain.ErrConflict), http.StatusConflict, "user with this email or username already exists"},
		{domain.ErrAccountNotFound, http.StatusNotFound, "user not found"},
		{fmt.Errorf("%w: invalid user credentials", domain.ErrUnauthorized), http.StatusUnauthorized, "invalid user credentials"},
		{fmt.Errorf("%w: user registration failed", domain.ErrInternal), http.StatusInternalServerError, "user registration failed"},
		{fmt.Errorf("login: reload account: %w", domain.ErrAccountNotFound), http.StatusNotFound, "user not found"},
	}

	for _, tc := range cases {
		code, resp := render(t, tc.err)
		if code != tc.code || resp.StatusCode != tc.code {
			t.Errorf("%v: expected %d, got %d / %d", tc.err, tc.code, code, resp.StatusCode)
		}
		if resp.Message != tc.message {
			t.Errorf("%v: expected message %q, got %q", tc.err, tc.message, resp.Message)
		}
		if resp.Success {
			t.Errorf("%v: success must be false", tc.err)
		}
		if resp.Errors == nil {
			t.Errorf("%v: errors must render as an array", tc.err)
		}
	}
}

func TestErrorHandler_ValidationDetails(t *testing.T) {
	_, resp := render(t, fmt.Errorf("%w: username must be at most 50 characters; password is required", domain.ErrValidation))
	if len(resp.Errors) != 2 {
		t.Fatalf("expected two details, got %v", resp.Errors)
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	code, resp := render(t, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token"))
	if code != http.StatusUnauthorized || resp.Message != "invalid access token" {
		t.Fatalf("unexpected response %d %+v", code, resp)
	}
}

func TestErrorHandler_UnknownErrorIsGeneric(t *testing.T) {
	code, resp := render(t, errors.New("mongo: connection reset by peer"))
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if resp.Message != "internal server error" {
		t.Fatalf("internal detail leaked: %q", resp.Message)
	}
}

func TestErrorHandler_DetailSurvivesOuterWrapping(t *testing.T) {
	err := fmt.Errorf("register: %w", fmt.Errorf("%w: avatar file is required", domain.ErrValidation))
	code, resp := render(t, err)
	if code != http.StatusBadRequest || resp.Message != "avatar file is required" {
		t.Fatalf("expected 400 with detail, got %d %q", code, resp.Message)
	}
}

func TestErrorHandler_MultibytePasswordTooLong(t *testing.T) {
	// 40 runes pass a rune-counting max=72 check but are 80 bytes.
	err := (&domain.Account{}).SetPassword(security.NewBcryptHasher(4), strings.Repeat("é", 40))
	if err == nil {
		t.Fatalf("expected hashing to fail")
	}

	code, resp := render(t, err)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if resp.Message != "password must be at most 72 bytes" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "password must be at most 72 bytes" {
		t.Fatalf("unexpected details %v", resp.Errors)
	}
}
