package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/pagination"
)

// CreateExerciseInput holds the parameters for adding a catalogue entry.
type CreateExerciseInput struct {
	Name        string
	Description string
}

// ExerciseService manages the shared exercise catalogue.
type ExerciseService struct {
	repo   repository.ExerciseRepository
	logger *slog.Logger
}

// NewExerciseService creates a new exercise service.
func NewExerciseService(repo repository.ExerciseRepository, logger *slog.Logger) *ExerciseService {
	return &ExerciseService{repo: repo, logger: logger}
}

// Create adds an exercise. The slug is derived from the name and must be
// unique.
func (s *ExerciseService) Create(ctx context.Context, input CreateExerciseInput) (*domain.Exercise, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.FieldInvalid("name", "This field may not be blank.")
	}
	sl := slug.Make(name)
	if sl == "" {
		return nil, apperrors.FieldInvalid("name", "Name must contain letters or digits.")
	}

	e := &domain.Exercise{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        sl,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exercise: %w", err)
	}

	s.logger.InfoContext(ctx, "exercise created",
		slog.String("exercise_id", e.ID),
		slog.String("slug", e.Slug),
	)
	return e, nil
}

// List returns a page of the catalogue ordered by name.
func (s *ExerciseService) List(ctx context.Context, params pagination.Params) (pagination.Result[domain.Exercise], error) {
	items, total, err := s.repo.List(ctx, params.Limit(), params.Offset())
	if err != nil {
		return pagination.Result[domain.Exercise]{}, fmt.Errorf("list exercises: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}
