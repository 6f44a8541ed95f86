package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/GymTrack/internal/domain"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// WorkoutRepository implements repository.WorkoutRepository.
type WorkoutRepository struct {
	mu       sync.RWMutex
	workouts map[string]domain.Workout
}

// NewWorkoutRepository creates an empty in-memory workout store.
func NewWorkoutRepository() *WorkoutRepository {
	return &WorkoutRepository{workouts: make(map[string]domain.Workout)}
}

func (r *WorkoutRepository) Create(_ context.Context, w *domain.Workout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workouts[w.ID] = *w
	return nil
}

func (r *WorkoutRepository) GetForUser(_ context.Context, userID, id string) (*domain.Workout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workouts[id]
	if !ok || w.UserID != userID {
		return nil, apperrors.NotFound("workout", id)
	}
	return &w, nil
}

// ListForUser orders like the SQL implementation: newest date first, then
// newest created.
func (r *WorkoutRepository) ListForUser(_ context.Context, userID string, limit, offset int) ([]domain.Workout, int, error) {
	r.mu.RLock()
	owned := make([]domain.Workout, 0)
	for _, w := range r.workouts {
		if w.UserID == userID {
			owned = append(owned, w)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].Date.Equal(owned[j].Date) {
			return owned[i].Date.After(owned[j].Date)
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return page(owned, limit, offset), len(owned), nil
}

func (r *WorkoutRepository) DeleteForUser(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workouts[id]
	if !ok || w.UserID != userID {
		return apperrors.NotFound("workout", id)
	}
	delete(r.workouts, id)
	return nil
}

// page applies LIMIT/OFFSET to a sorted slice.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
