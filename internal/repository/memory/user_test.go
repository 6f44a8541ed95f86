package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
)

var (
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.WorkoutRepository  = (*WorkoutRepository)(nil)
	_ repository.ExerciseRepository = (*ExerciseRepository)(nil)
	_ repository.RevocationList     = (*RevocationList)(nil)
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com"}))
	err := repo.Create(ctx, &domain.User{ID: "u2", Email: "a@b.com"})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	u, err := repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUserRepository_UpdateFuncMovesEmailIndex(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com"}))
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u2", Email: "taken@b.com"}))

	_, err := repo.UpdateFunc(ctx, "u1", func(u *domain.User) error {
		u.Email = "taken@b.com"
		return nil
	})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	u, err := repo.UpdateFunc(ctx, "u1", func(u *domain.User) error {
		u.Email = "c@d.com"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", u.Email)

	_, err = repo.GetByEmail(ctx, "a@b.com")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	got, err := repo.GetByEmail(ctx, "c@d.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestUserRepository_UpdateFuncSkipAndError(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com", Name: "A"}))

	u, err := repo.UpdateFunc(ctx, "u1", func(u *domain.User) error {
		u.Name = "ignored"
		return repository.ErrSkipUpdate
	})
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)

	boom := errors.New("boom")
	_, err = repo.UpdateFunc(ctx, "u1", func(u *domain.User) error {
		u.Name = "ignored"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Name)
}

func TestUserRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Email: "a@b.com"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.UpdateFunc(ctx, "u1", func(u *domain.User) error {
				u.Name += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, u.Name, 50)
}

func TestWorkoutRepository_OwnershipAndOrder(t *testing.T) {
	repo := NewWorkoutRepository()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, repo.Create(ctx, &domain.Workout{ID: "w1", UserID: "u1", Date: day(1)}))
	require.NoError(t, repo.Create(ctx, &domain.Workout{ID: "w2", UserID: "u1", Date: day(3)}))
	require.NoError(t, repo.Create(ctx, &domain.Workout{ID: "w3", UserID: "u2", Date: day(2)}))

	items, total, err := repo.ListForUser(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "w2", items[0].ID)

	items, _, err = repo.ListForUser(ctx, "u1", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = repo.GetForUser(ctx, "u2", "w1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.True(t, errors.Is(repo.DeleteForUser(ctx, "u2", "w1"), apperrors.ErrNotFound))
	assert.NoError(t, repo.DeleteForUser(ctx, "u1", "w1"))
}

func TestExerciseRepository_UniqueSlugAndSortedList(t *testing.T) {
	repo := NewExerciseRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Exercise{Name: "Squat", Slug: "squat"}))
	require.NoError(t, repo.Create(ctx, &domain.Exercise{Name: "Bench press", Slug: "bench-press"}))
	assert.True(t, errors.Is(repo.Create(ctx, &domain.Exercise{Name: "squat", Slug: "squat"}), apperrors.ErrAlreadyExists))

	items, total, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Bench press", items[0].Name)
}
