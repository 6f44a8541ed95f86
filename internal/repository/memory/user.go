package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// UserRepository implements repository.UserRepository. A single mutex
// serializes UpdateFunc calls, which gives the same per-record atomicity as
// the row lock in the Postgres implementation.
type UserRepository struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
}

// NewUserRepository creates an empty in-memory user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepository) UpdateFunc(_ context.Context, id string, fn func(u *domain.User) error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}

	next := current
	if err := fn(&next); err != nil {
		if errors.Is(err, repository.ErrSkipUpdate) {
			return &current, nil
		}
		return nil, err
	}

	if next.Email != current.Email {
		if _, taken := r.byEmail[next.Email]; taken {
			return nil, apperrors.AlreadyExists("user", "email", next.Email)
		}
		delete(r.byEmail, current.Email)
		r.byEmail[next.Email] = id
	}
	next.UpdatedAt = time.Now().UTC()
	r.byID[id] = next
	return &next, nil
}
