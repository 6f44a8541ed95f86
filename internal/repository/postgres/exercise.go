package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/pkg/database"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

// ExerciseRepository implements repository.ExerciseRepository using PostgreSQL.
type ExerciseRepository struct {
	db database.DB
}

// NewExerciseRepository creates a new PostgreSQL-backed exercise repository.
func NewExerciseRepository(db database.DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

// Create inserts a new exercise. Name and slug are unique.
func (r *ExerciseRepository) Create(ctx context.Context, e *domain.Exercise) (err error) {
	query := `
		INSERT INTO exercises (id, name, slug, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	ctx, end := database.TraceQuery(ctx, "CreateExercise", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, e.ID, e.Name, e.Slug, e.Description, e.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("exercise", "slug", e.Slug)
		}
		return fmt.Errorf("insert exercise: %w", err)
	}

	return nil
}

// List returns a page of exercises ordered by name and the total count.
func (r *ExerciseRepository) List(ctx context.Context, limit, offset int) (items []domain.Exercise, total int, err error) {
	query := `
		SELECT id, name, slug, description, created_at
		FROM exercises
		ORDER BY name
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListExercises", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count exercises: %w", err)
	}

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Exercise
		if err = rows.Scan(&e.ID, &e.Name, &e.Slug, &e.Description, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan exercise row: %w", err)
		}
		items = append(items, e)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate exercise rows: %w", err)
	}

	if items == nil {
		items = []domain.Exercise{}
	}

	return items, total, nil
}
