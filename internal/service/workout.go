package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/pagination"
)

// CreateWorkoutInput holds the parameters for creating a workout. Date is
// YYYY-MM-DD and defaults to today (UTC).
type CreateWorkoutInput struct {
	Name string
	Date string
	Aim  string
}

// WorkoutService manages workouts on behalf of their owners.
type WorkoutService struct {
	repo   repository.WorkoutRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewWorkoutService creates a new workout service.
func NewWorkoutService(repo repository.WorkoutRepository, logger *slog.Logger) *WorkoutService {
	return &WorkoutService{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Create stores a new workout owned by userID.
func (s *WorkoutService) Create(ctx context.Context, userID string, input CreateWorkoutInput) (*domain.Workout, error) {
	now := s.now()
	date := now.Truncate(24 * time.Hour)
	if d := strings.TrimSpace(input.Date); d != "" {
		parsed, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			return nil, apperrors.FieldInvalid("date", "Date has wrong format. Use YYYY-MM-DD.")
		}
		date = parsed
	}

	w := &domain.Workout{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      strings.TrimSpace(input.Name),
		Date:      date,
		Aim:       strings.TrimSpace(input.Aim),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create workout: %w", err)
	}

	s.logger.InfoContext(ctx, "workout created",
		slog.String("user_id", userID),
		slog.String("workout_id", w.ID),
	)
	return w, nil
}

// Get returns one of the user's workouts. Other users' workouts are not
// found.
func (s *WorkoutService) Get(ctx context.Context, userID, id string) (*domain.Workout, error) {
	w, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get workout: %w", err)
	}
	return w, nil
}

// List returns a page of the user's workouts, newest first.
func (s *WorkoutService) List(ctx context.Context, userID string, params pagination.Params) (pagination.Result[domain.Workout], error) {
	items, total, err := s.repo.ListForUser(ctx, userID, params.Limit(), params.Offset())
	if err != nil {
		return pagination.Result[domain.Workout]{}, fmt.Errorf("list workouts: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

// Delete removes one of the user's workouts.
func (s *WorkoutService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteForUser(ctx, userID, id); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	s.logger.InfoContext(ctx, "workout deleted",
		slog.String("user_id", userID),
		slog.String("workout_id", id),
	)
	return nil
}
