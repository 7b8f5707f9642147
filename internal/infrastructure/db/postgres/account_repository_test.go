package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidhub/account-service/internal/core/domain"
	"github.com/vidhub/account-service/internal/infrastructure/db/postgres/migrations"
)

func TestMigrate_UsesEmbeddedMigrations(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	called := false
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		called = true
		if dir != "." {
			t.Fatalf("unexpected dir %q", dir)
		}
		return nil
	}

	if err := Migrate(context.Background(), nil); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !called {
		t.Fatalf("goose up not invoked")
	}

	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("expected embedded sql migrations, got %v (%v)", files, err)
	}
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	boom := errors.New("boom")
	gooseUp = func(context.Context, *sql.DB, string) error { return boom }

	if err := Migrate(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAccountRepository_MalformedIDsShortCircuit(t *testing.T) {
	// A nil DBTX would panic if any of these reached the database.
	repo := NewAccountRepository(nil)
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("FindByID: expected ErrAccountNotFound, got %v", err)
	}
	if err := repo.UpdateRefreshToken(ctx, "not-a-uuid", nil); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("UpdateRefreshToken: expected ErrAccountNotFound, got %v", err)
	}
	if ok, err := repo.SwapRefreshToken(ctx, "not-a-uuid", "a", "b"); ok || err != nil {
		t.Fatalf("SwapRefreshToken: expected (false, nil), got (%v, %v)", ok, err)
	}
	if _, err := repo.FindByEmailOrUsername(ctx, "", ""); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("FindByEmailOrUsername: expected ErrAccountNotFound, got %v", err)
	}
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*AccountRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := NewAccountRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func accountColumns() []string {
	return []string{"id", "username", "email", "full_name", "password_hash", "avatar_url", "cover_image",
		"refresh_token", "created_at", "updated_at"}
}

const accountID = "0b8f7a9e-2f4c-4f6e-9d0a-3c1e5b7d9f11"

func TestAccountRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", "Alice", "hash", "https://cdn/a.png", "",
			sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &domain.Account{
		Username: "alice", Email: "alice@example.com", FullName: "Alice",
		PasswordHash: "hash", AvatarURL: "https://cdn/a.png",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(got.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", got.ID)
	}
	if !got.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected createdAt %v", got.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &domain.Account{Username: "alice", Email: "alice@example.com"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountRepository_FindByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(accountColumns()).
		AddRow(accountID, "alice", "alice@example.com", "Alice", "hash", "https://cdn/a.png", "", "rt-1", fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(accountID).
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), accountID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Username != "alice" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected account: %+v", got)
	}
	if got.CurrentRefreshToken == nil || *got.CurrentRefreshToken != "rt-1" {
		t.Fatalf("expected refresh token rt-1, got %v", got.CurrentRefreshToken)
	}
}

func TestAccountRepository_FindByIDNotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(accountID).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), accountID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountRepository_FindByEmailOrUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(accountColumns()).
		AddRow(accountID, "alice", "alice@example.com", "Alice", "hash", "https://cdn/a.png", "", nil, fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("lower(email) = lower($1)")).
		WithArgs("", "alice").
		WillReturnRows(rows)

	got, err := repo.FindByEmailOrUsername(context.Background(), "", "alice")
	if err != nil {
		t.Fatalf("FindByEmailOrUsername: %v", err)
	}
	if got.CurrentRefreshToken != nil {
		t.Fatalf("expected no refresh token, got %v", *got.CurrentRefreshToken)
	}
}

func TestAccountRepository_UpdateRefreshTokenMissingRow(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET refresh_token = $2")).
		WithArgs(accountID, sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateRefreshToken(context.Background(), accountID, nil); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountRepository_SwapRefreshToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	swap := regexp.QuoteMeta("WHERE id = $1 AND refresh_token = $2")

	mock.ExpectExec(swap).
		WithArgs(accountID, "old", "new", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(swap).
		WithArgs(accountID, "old", "newer", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SwapRefreshToken(context.Background(), accountID, "old", "new")
	if err != nil || !ok {
		t.Fatalf("first swap: expected (true, nil), got (%v, %v)", ok, err)
	}
	ok, err = repo.SwapRefreshToken(context.Background(), accountID, "old", "newer")
	if err != nil || ok {
		t.Fatalf("second swap: expected (false, nil), got (%v, %v)", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
