package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewUserRepository(mock)
	return repo, mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           "0b6f1f8e-3c1a-4f57-9d7e-2b9c1c0e8a11",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "hash-abc",
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "name", "password_hash", "is_active",
		"is_verified", "is_staff", "is_admin", "created_at", "updated_at",
	}).AddRow(
		u.ID, u.Email, u.Name, u.PasswordHash, u.IsActive,
		u.IsVerified, u.IsStaff, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_email_key\""}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Email, u.Name, u.PasswordHash, u.IsActive,
			u.IsVerified, u.IsStaff, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Email, u.Name, u.PasswordHash, u.IsActive,
			u.IsVerified, u.IsStaff, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
		).
		WillReturnError(fmt.Errorf("exec: %w", uniqueViolation()))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists), "expected ErrAlreadyExists, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_ExecError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.False(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID / GetByEmail
// ---------------------------------------------------------------------------

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.IsStaff = true

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Name, got.Name)
	assert.True(t, got.IsStaff)
	assert.False(t, got.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing-id")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// UpdateFunc
// ---------------------------------------------------------------------------

func TestUserRepository_UpdateFunc_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))
	// UpdateFunc stamps updated_at itself, so we use AnyArg for that column.
	mock.ExpectExec("UPDATE users").
		WithArgs(
			u.Email, u.Name, u.PasswordHash, u.IsActive, true,
			u.IsStaff, u.IsAdmin, pgxmock.AnyArg(), u.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := repo.UpdateFunc(context.Background(), u.ID, func(cur *domain.User) error {
		cur.IsVerified = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.True(t, got.UpdatedAt.After(u.UpdatedAt) || got.UpdatedAt.Equal(u.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_Skip(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	u.IsVerified = true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))
	mock.ExpectRollback()

	got, err := repo.UpdateFunc(context.Background(), u.ID, func(cur *domain.User) error {
		return repository.ErrSkipUpdate
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_CallbackError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))
	mock.ExpectRollback()

	got, err := repo.UpdateFunc(context.Background(), u.ID, func(*domain.User) error {
		return boom
	})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = .+ FOR UPDATE").
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	called := false
	got, err := repo.UpdateFunc(context.Background(), "missing-id", func(*domain.User) error {
		called = true
		return nil
	})
	assert.Nil(t, got)
	assert.False(t, called)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM users WHERE id = .+ FOR UPDATE").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))
	mock.ExpectExec("UPDATE users").
		WillReturnError(uniqueViolation())
	mock.ExpectRollback()

	got, err := repo.UpdateFunc(context.Background(), u.ID, func(cur *domain.User) error {
		cur.Email = "taken@example.com"
		return nil
	})
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists), "expected ErrAlreadyExists, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateFunc_BeginError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := repo.UpdateFunc(context.Background(), "u-1", func(*domain.User) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool exhausted")
	assert.NoError(t, mock.ExpectationsWereMet())
}
