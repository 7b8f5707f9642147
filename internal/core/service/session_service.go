package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/ports"
)

// SessionService implements registration, login, logout and refresh-token
// rotation over a single account record.
type SessionService struct {
	repo       ports.AccountRepository
	hasher     domain.PasswordHasher
	tokens     ports.TokenIssuer
	uploader   ports.MediaUploader
	revoker    ports.TokenRevoker
	serializer ports.KeySerializer
	log        zerolog.Logger
}

// Deps groups the collaborators of SessionService. Revoker and Serializer
// are optional: without a revoker logout only clears the refresh token, and
// without a serializer refresh relies on the store's conditional update alone.
type Deps struct {
	Repo       ports.AccountRepository
	Hasher     domain.PasswordHasher
	Tokens     ports.TokenIssuer
	Uploader   ports.MediaUploader
	Revoker    ports.TokenRevoker
	Serializer ports.KeySerializer
}

func NewSessionService(deps Deps, log zerolog.Logger) *SessionService {
	return &SessionService{
		repo:       deps.Repo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		uploader:   deps.Uploader,
		revoker:    deps.Revoker,
		serializer: deps.Serializer,
		log:        log,
	}
}

// Register creates a new account. Nothing is persisted unless every check
// and the avatar upload succeed.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.PublicAccount, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := domain.NormalizeKey(in.Email)
	username := domain.NormalizeKey(in.Username)

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: please provide all the required fields", domain.ErrValidation)
	}

	existing, err := s.repo.FindByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: user with this email or username already exists", domain.ErrConflict)
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return nil, fmt.Errorf("register: lookup: %w", err)
	}

	if in.Avatar == nil {
		return nil, fmt.Errorf("%w: avatar file is required", domain.ErrValidation)
	}
	avatarURL, err := s.uploader.Upload(ctx, in.Avatar)
	if err != nil || avatarURL == "" {
		s.log.Warn().Err(err).Str("username", username).Msg("avatar upload failed")
		return nil, fmt.Errorf("%w: avatar file is required", domain.ErrValidation)
	}

	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.uploader.Upload(ctx, in.CoverImage)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("cover image upload failed, continuing without it")
			coverURL = ""
		}
	}

	account := &domain.Account{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := account.SetPassword(s.hasher, in.Password); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: user with this email or username already exists", domain.ErrConflict)
		}
		return nil, fmt.Errorf("register: create: %w", err)
	}

	stored, err := s.repo.FindByID(ctx, created.ID)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", created.ID).Msg("created account not readable")
		return nil, fmt.Errorf("%w: user registration failed", domain.ErrInternal)
	}

	s.log.Info().Str("account_id", stored.ID).Str("username", stored.Username).Msg("account registered")
	return stored.Public(), nil
}

// Login verifies credentials and starts a new session, replacing any
// previously stored refresh token.
func (s *SessionService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := domain.NormalizeKey(in.Email)
	username := domain.NormalizeKey(in.Username)

	if email == "" && username == "" {
		return nil, fmt.Errorf("%w: please provide email or username", domain.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: please provide password", domain.ErrValidation)
	}

	account, err := s.repo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}

	if !account.CheckPassword(s.hasher, in.Password) {
		return nil, fmt.Errorf("%w: invalid user credentials", domain.ErrUnauthorized)
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("token generation failed")
		return nil, fmt.Errorf("%w: something went wrong while generating access and refresh tokens", domain.ErrInternal)
	}

	refresh := pair.RefreshToken
	if err := s.repo.UpdateRefreshToken(ctx, account.ID, &refresh); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("persist refresh token failed")
		return nil, fmt.Errorf("%w: something went wrong while generating access and refresh tokens", domain.ErrInternal)
	}

	loggedIn, err := s.repo.FindByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("login: reload account: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Msg("account logged in")
	return &ports.LoginResult{Account: loggedIn.Public(), Tokens: pair}, nil
}

// Logout ends the caller's session by clearing the stored refresh token.
func (s *SessionService) Logout(ctx context.Context, in ports.LogoutInput) error {
	if in.AccountID == "" {
		return fmt.Errorf("%w: missing authenticated account", domain.ErrUnauthorized)
	}

	if err := s.repo.UpdateRefreshToken(ctx, in.AccountID, nil); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return fmt.Errorf("logout: %w", err)
	}

	if s.revoker != nil && in.AccessTokenID != "" && in.AccessExpiresAt.After(time.Now()) {
		if err := s.revoker.Revoke(ctx, in.AccessTokenID, in.AccessExpiresAt); err != nil {
			s.log.Warn().Err(err).Str("account_id", in.AccountID).Msg("failed to revoke access token")
		}
	}

	s.log.Info().Str("account_id", in.AccountID).Msg("account logged out")
	return nil
}

// Refresh exchanges the current refresh token for a new pair. The presented
// token must be the exact one stored on the account; the old one is
// unusable once this returns.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: unauthorized request", domain.ErrUnauthorized)
	}

	claims, err := s.tokens.Verify(domain.RefreshToken, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}

	var pair *domain.TokenPair
	rotate := func(ctx context.Context) error {
		var rerr error
		pair, rerr = s.rotate(ctx, claims.AccountID, refreshToken)
		return rerr
	}

	if s.serializer != nil {
		err = s.serializer.Do(ctx, claims.AccountID, rotate)
	} else {
		err = rotate(ctx)
	}
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *SessionService) rotate(ctx context.Context, accountID, presented string) (*domain.TokenPair, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("refresh: lookup: %w", err)
	}

	if !account.HasRefreshToken(presented) {
		s.log.Warn().Str("account_id", accountID).Msg("refresh token is expired or used")
		return nil, fmt.Errorf("%w: refresh token is expired or used", domain.ErrUnauthorized)
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("token generation failed")
		return nil, fmt.Errorf("%w: something went wrong while generating access and refresh tokens", domain.ErrInternal)
	}

	swapped, err := s.repo.SwapRefreshToken(ctx, accountID, presented, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh: rotate: %w", err)
	}
	if !swapped {
		s.log.Warn().Str("account_id", accountID).Msg("refresh token rotated concurrently")
		return nil, fmt.Errorf("%w: refresh token is expired or used", domain.ErrUnauthorized)
	}

	s.log.Debug().Str("account_id", accountID).Msg("refresh token rotated")
	return pair, nil
}

// CurrentAccount returns the public view of the authenticated account.
func (s *SessionService) CurrentAccount(ctx context.Context, accountID string) (*domain.PublicAccount, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return account.Public(), nil
}
