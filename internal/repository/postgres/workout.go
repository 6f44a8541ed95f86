package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/pkg/database"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// WorkoutRepository implements repository.WorkoutRepository using PostgreSQL.
type WorkoutRepository struct {
	db database.DB
}

// NewWorkoutRepository creates a new PostgreSQL-backed workout repository.
func NewWorkoutRepository(db database.DB) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

// Create inserts a new workout.
func (r *WorkoutRepository) Create(ctx context.Context, w *domain.Workout) (err error) {
	query := `
		INSERT INTO workouts (id, user_id, name, workout_date, aim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "CreateWorkout", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, w.ID, w.UserID, w.Name, w.Date, w.Aim, w.CreatedAt); err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}

	return nil
}

// GetForUser returns the workout only if it belongs to userID; a workout
// owned by someone else is reported as not found.
func (r *WorkoutRepository) GetForUser(ctx context.Context, userID, id string) (w *domain.Workout, err error) {
	query := `
		SELECT id, user_id, name, workout_date, aim, created_at
		FROM workouts
		WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "GetWorkout", query)
	defer func() { end(ignoreNotFound(err)) }()

	var out domain.Workout
	err = r.db.QueryRow(ctx, query, id, userID).Scan(
		&out.ID, &out.UserID, &out.Name, &out.Date, &out.Aim, &out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("workout", id)
		}
		return nil, fmt.Errorf("scan workout: %w", err)
	}

	return &out, nil
}

// ListForUser returns a page of the user's workouts, newest first, and the
// total count.
func (r *WorkoutRepository) ListForUser(ctx context.Context, userID string, limit, offset int) (items []domain.Workout, total int, err error) {
	query := `
		SELECT id, user_id, name, workout_date, aim, created_at
		FROM workouts
		WHERE user_id = $1
		ORDER BY workout_date DESC, created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "ListWorkouts", query)
	defer func() { end(err) }()

	countQuery := `SELECT COUNT(*) FROM workouts WHERE user_id = $1`
	if err = r.db.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workouts: %w", err)
	}

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w domain.Workout
		if err = rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Date, &w.Aim, &w.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan workout row: %w", err)
		}
		items = append(items, w)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate workout rows: %w", err)
	}

	if items == nil {
		items = []domain.Workout{}
	}

	return items, total, nil
}

// DeleteForUser removes the workout if it belongs to userID.
func (r *WorkoutRepository) DeleteForUser(ctx context.Context, userID, id string) (err error) {
	query := `DELETE FROM workouts WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "DeleteWorkout", query)
	defer func() { end(ignoreNotFound(err)) }()

	ct, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("workout", id)
	}

	return nil
}
