package repository

import (
	"context"
	"errors"
	"time"

	"github.com/utafrali/GymTrack/internal/domain"
)

// ErrSkipUpdate may be returned by an UpdateFunc callback to end the
// transaction without writing. The user is returned as loaded.
var ErrSkipUpdate = errors.New("skip update")

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store. A duplicate email yields
	// an error wrapping apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their normalized email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateFunc loads the user with a row lock, applies fn and persists
	// the result in the same transaction.
	UpdateFunc(ctx context.Context, id string, fn func(u *domain.User) error) (*domain.User, error)
}

// RevocationList tracks refresh token ids that must no longer be honored.
type RevocationList interface {
	// Revoke records tokenID. Revoking an already revoked id is a no-op.
	// expiresAt is the token's natural expiry, after which the entry may
	// be discarded.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsRevoked reports whether tokenID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// WorkoutRepository defines the interface for workout persistence. Every
// lookup is scoped to the owning user.
type WorkoutRepository interface {
	Create(ctx context.Context, w *domain.Workout) error
	GetForUser(ctx context.Context, userID, id string) (*domain.Workout, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Workout, int, error)
	DeleteForUser(ctx context.Context, userID, id string) error
}

// ExerciseRepository defines the interface for the shared exercise catalogue.
type ExerciseRepository interface {
	Create(ctx context.Context, e *domain.Exercise) error
	List(ctx context.Context, limit, offset int) ([]domain.Exercise, int, error)
}
