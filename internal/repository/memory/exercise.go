package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/GymTrack/internal/domain"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// ExerciseRepository implements repository.ExerciseRepository.
type ExerciseRepository struct {
	mu        sync.RWMutex
	exercises map[string]domain.Exercise // keyed by slug
}

// NewExerciseRepository creates an empty in-memory catalogue.
func NewExerciseRepository() *ExerciseRepository {
	return &ExerciseRepository{exercises: make(map[string]domain.Exercise)}
}

func (r *ExerciseRepository) Create(_ context.Context, e *domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.exercises[e.Slug]; taken {
		return apperrors.AlreadyExists("exercise", "slug", e.Slug)
	}
	r.exercises[e.Slug] = *e
	return nil
}

func (r *ExerciseRepository) List(_ context.Context, limit, offset int) ([]domain.Exercise, int, error) {
	r.mu.RLock()
	all := make([]domain.Exercise, 0, len(r.exercises))
	for _, e := range r.exercises {
		all = append(all, e)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return page(all, limit, offset), len(all), nil
}
