// Package repositorytest holds the behaviour every UserRepository backend
// must share.
package repositorytest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-api/internal/domain"
	"user-api/internal/repository"
)

// Factory builds an initialised repository whose update clock is clock.
type Factory func(t *testing.T, clock domain.Clock) repository.UserRepository

// Created is the timestamp every fixture user is created with.
var Created = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

// FakeClock is a settable clock.
type FakeClock struct {
	T time.Time
}

func (c *FakeClock) Now() time.Time { return c.T }

func (c *FakeClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// NewUser returns a fully populated user with the given id and name.
func NewUser(id, name string) *domain.User {
	return &domain.User{
		ID:          id,
		Name:        name,
		Email:       name + "@example.com",
		Password:    "secret",
		Mobile:      "123",
		Description: "about " + name,
		CreatedAt:   domain.FormatTimestamp(Created),
		UpdatedAt:   domain.FormatTimestamp(Created),
	}
}

func ptr(s string) *string { return &s }

// Run executes the shared suite against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	setup := func(t *testing.T) (repository.UserRepository, *FakeClock) {
		clock := &FakeClock{T: Created}
		return newRepo(t, clock.Now), clock
	}

	t.Run("ListEmpty", func(t *testing.T) {
		repo, _ := setup(t)
		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		repo, _ := setup(t)
		created, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)
		assert.Equal(t, *NewUser("id-1", "Ann"), *created)

		got, err := repo.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, *created, *got)
	})

	t.Run("ListKeepsInsertionOrder", func(t *testing.T) {
		repo, _ := setup(t)
		for _, u := range []*domain.User{NewUser("c", "Cid"), NewUser("a", "Ann"), NewUser("b", "Bob")} {
			_, err := repo.Create(ctx, u)
			require.NoError(t, err)
		}

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []string{"c", "a", "b"}, []string{users[0].ID, users[1].ID, users[2].ID})
	})

	t.Run("CreateDuplicateNameConflicts", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)

		other := NewUser("id-2", "Ann")
		other.Email = "different@example.com"
		_, err = repo.Create(ctx, other)
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))
		assert.Equal(t, "User with the name 'Ann' already exists", err.Error())

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("NameUniquenessIsCaseSensitive", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, NewUser("id-2", "ann"))
		require.NoError(t, err)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Get(ctx, "does-not-exist")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
		assert.Equal(t, "Can't find user with the id 'does-not-exist'", err.Error())
	})

	t.Run("UpdateMergesAndStampsUpdatedAt", func(t *testing.T) {
		repo, clock := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)
		clock.Advance(90 * time.Second)

		updated, err := repo.Update(ctx, "id-1", domain.UserChanges{Description: ptr("x")})
		require.NoError(t, err)

		want := *NewUser("id-1", "Ann")
		want.Description = "x"
		want.UpdatedAt = "10/18/2026, 12:01:30 PM"
		assert.Equal(t, want, *updated)

		got, err := repo.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	})

	t.Run("UpdateRename", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, "id-1", domain.UserChanges{Name: ptr("Anne")})
		require.NoError(t, err)
		assert.Equal(t, "Anne", updated.Name)

		_, err = repo.Create(ctx, NewUser("id-2", "Ann"))
		require.NoError(t, err, "old name is free again")
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Update(ctx, "nope", domain.UserChanges{Description: ptr("x")})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))

		_, err = repo.Update(ctx, "nope", domain.UserChanges{})
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("UpdateNameTakenByOther", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, NewUser("id-2", "Bob"))
		require.NoError(t, err)

		_, err = repo.Update(ctx, "id-2", domain.UserChanges{Name: ptr("Ann")})
		require.Error(t, err)
		assert.True(t, domain.IsConflict(err))

		got, err := repo.Get(ctx, "id-2")
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
	})

	t.Run("UpdateToOwnNameConflicts", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)

		_, err = repo.Update(ctx, "id-1", domain.UserChanges{Name: ptr("Ann")})
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("ConflictIsCheckedBeforeExistence", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)

		_, err = repo.Update(ctx, "nope", domain.UserChanges{Name: ptr("Ann")})
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("DeleteThenGet", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, NewUser("id-2", "Bob"))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "id-1"))

		_, err = repo.Get(ctx, "id-1")
		assert.True(t, domain.IsNotFound(err))

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "id-2", users[0].ID)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		repo, _ := setup(t)
		err := repo.Delete(ctx, "nope")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("TimestampsAreStoredVerbatim", func(t *testing.T) {
		repo, _ := setup(t)
		user := NewUser("id-1", "Ann")
		user.CreatedAt = "10/18/2026, 12:38:00\u202fPM"
		user.UpdatedAt = "2026-10-18"
		_, err := repo.Create(ctx, user)
		require.NoError(t, err)

		got, err := repo.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "10/18/2026, 12:38:00\u202fPM", got.CreatedAt)
		assert.Equal(t, "2026-10-18", got.UpdatedAt)
	})

	t.Run("ListReturnsCopies", func(t *testing.T) {
		repo, _ := setup(t)
		_, err := repo.Create(ctx, NewUser("id-1", "Ann"))
		require.NoError(t, err)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		users[0].Name = "mutated"

		got, err := repo.Get(ctx, "id-1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", got.Name)
	})
}
