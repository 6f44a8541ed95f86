package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GymTrack/internal/domain"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

func newWorkoutTestFixture(t *testing.T) (*WorkoutRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewWorkoutRepository(mock), mock
}

func sampleWorkout() *domain.Workout {
	return &domain.Workout{
		ID:        "w-1",
		UserID:    "u-1",
		Name:      "Leg day",
		Date:      time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		Aim:       "strength",
		CreatedAt: time.Date(2024, 5, 6, 18, 30, 0, 0, time.UTC),
	}
}

var workoutColumns = []string{"id", "user_id", "name", "workout_date", "aim", "created_at"}

func TestWorkoutRepository_Create_Success(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	w := sampleWorkout()

	mock.ExpectExec("INSERT INTO workouts").
		WithArgs(w.ID, w.UserID, w.Name, w.Date, w.Aim, w.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), w))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_GetForUser_Success(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	w := sampleWorkout()

	mock.ExpectQuery("SELECT .+ FROM workouts WHERE id = .+ AND user_id =").
		WithArgs(w.ID, w.UserID).
		WillReturnRows(pgxmock.NewRows(workoutColumns).
			AddRow(w.ID, w.UserID, w.Name, w.Date, w.Aim, w.CreatedAt))

	got, err := repo.GetForUser(context.Background(), w.UserID, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_GetForUser_OtherOwner(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM workouts").
		WithArgs("w-1", "intruder").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetForUser(context.Background(), "intruder", "w-1")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_ListForUser_Success(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	w := sampleWorkout()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(w.UserID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT .+ FROM workouts WHERE user_id = .+ ORDER BY").
		WithArgs(w.UserID, 2, 0).
		WillReturnRows(pgxmock.NewRows(workoutColumns).
			AddRow(w.ID, w.UserID, w.Name, w.Date, w.Aim, w.CreatedAt).
			AddRow("w-2", w.UserID, "", w.Date.AddDate(0, 0, -1), "", w.CreatedAt))

	items, total, err := repo.ListForUser(context.Background(), w.UserID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "w-2", items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_ListForUser_Empty(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT .+ FROM workouts").
		WithArgs("u-1", 20, 0).
		WillReturnRows(pgxmock.NewRows(workoutColumns))

	items, total, err := repo.ListForUser(context.Background(), "u-1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_ListForUser_CountError(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u-1").
		WillReturnError(errors.New("db down"))

	_, _, err := repo.ListForUser(context.Background(), "u-1", 20, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count workouts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_DeleteForUser(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM workouts WHERE id = .+ AND user_id =").
		WithArgs("w-1", "u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.DeleteForUser(context.Background(), "u-1", "w-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutRepository_DeleteForUser_NotFound(t *testing.T) {
	repo, mock := newWorkoutTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM workouts").
		WithArgs("w-1", "intruder").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteForUser(context.Background(), "intruder", "w-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
