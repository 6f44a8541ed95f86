package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	"github.com/utafrali/GymTrack/pkg/database"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

const userColumns = `id, email, name, password_hash, is_active, is_verified, is_staff, is_admin, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.IsActive,
		u.IsVerified,
		u.IsStaff,
		u.IsAdmin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (u *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by their normalized email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", query)
	defer func() { end(ignoreNotFound(err)) }()

	return scanUser(r.db.QueryRow(ctx, query, email))
}

// UpdateFunc locks the user row, hands a copy to fn and writes back whatever
// fn left in it. Concurrent updates of the same user are serialized by the
// row lock; updates of different users never wait on each other.
func (r *UserRepository) UpdateFunc(ctx context.Context, id string, fn func(u *domain.User) error) (updated *domain.User, err error) {
	selectQuery := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	updateQuery := `
		UPDATE users
		SET email = $1, name = $2, password_hash = $3, is_active = $4, is_verified = $5,
		    is_staff = $6, is_admin = $7, updated_at = $8
		WHERE id = $9`

	ctx, end := database.TraceQuery(ctx, "UpdateUser", updateQuery)
	defer func() { end(ignoreNotFound(err)) }()

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			return err
		}

		if err := fn(u); err != nil {
			if errors.Is(err, repository.ErrSkipUpdate) {
				updated = u
			}
			return err
		}

		u.ID = id
		u.UpdatedAt = time.Now().UTC()

		if _, err := tx.Exec(ctx, updateQuery,
			u.Email,
			u.Name,
			u.PasswordHash,
			u.IsActive,
			u.IsVerified,
			u.IsStaff,
			u.IsAdmin,
			u.UpdatedAt,
			u.ID,
		); err != nil {
			if isUniqueViolation(err) {
				return apperrors.AlreadyExists("user", "email", u.Email)
			}
			return fmt.Errorf("update user: %w", err)
		}

		updated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSkipUpdate) {
			return updated, nil
		}
		return nil, err
	}

	return updated, nil
}

// scanUser reads a single user row.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsVerified,
		&u.IsStaff,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ignoreNotFound keeps expected misses out of span errors.
func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
