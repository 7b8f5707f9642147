package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/core/ports"
)

const uniqueViolation = "23505"

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AccountRepository implements ports.AccountRepository on PostgreSQL.
type AccountRepository struct {
	db  DBTX
	now func() time.Time
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

const selectAccount = `SELECT id, username, email, full_name, password_hash, avatar_url, cover_image,
       refresh_token, created_at, updated_at
  FROM users`

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	created := *account
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image,
		                    refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		created.ID, created.Username, created.Email, created.FullName, created.PasswordHash,
		created.AvatarURL, created.CoverImageURL, created.CurrentRefreshToken, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &created, nil
}

func (r *AccountRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.Account, error) {
	if email == "" && username == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx,
		selectAccount+` WHERE ($1 <> '' AND lower(email) = lower($1)) OR ($2 <> '' AND lower(username) = lower($2)) LIMIT 1`,
		email, username)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		a       domain.Account
		refresh sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash, &a.AvatarURL, &a.CoverImageURL,
		&refresh, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if refresh.Valid {
		a.CurrentRefreshToken = &refresh.String
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func (r *AccountRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		id, token, r.now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// SwapRefreshToken is a single conditional UPDATE; row-level locking makes
// concurrent swaps of the same token resolve to one winner.
func (r *AccountRepository) SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil || expected == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $3, updated_at = $4 WHERE id = $1 AND refresh_token = $2`,
		id, expected, next, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap refresh token: %w", err)
	}
	return n == 1, nil
}
