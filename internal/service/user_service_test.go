package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-api/internal/domain"
	"user-api/internal/repository/jsonfile"
	"user-api/internal/repository/repositorytest"
)

func newTestService(t *testing.T) (UserService, *repositorytest.FakeClock) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.PanicLevel)

	clock := &repositorytest.FakeClock{T: repositorytest.Created.Add(500 * time.Millisecond)}
	repo := jsonfile.NewUserRepository(jsonfile.Config{
		Path:   filepath.Join(t.TempDir(), "db.json"),
		Clock:  clock.Now,
		Logger: logger,
	})
	require.NoError(t, repo.Init(context.Background()))
	return NewUserService(repo, clock.Now), clock
}

func annInput() domain.NewUser {
	return domain.NewUser{
		Name:        "Ann",
		Email:       "a@x.com",
		Password:    "p",
		Mobile:      "123",
		Description: "d",
	}
}

func TestCreateUserAssignsIDAndTimestamps(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), annInput())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "10/18/2026, 12:00:00 PM", user.CreatedAt)
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "p", user.Password)
	assert.Equal(t, "123", user.Mobile)
	assert.Equal(t, "d", user.Description)
}

func TestCreateUserGeneratesUniqueIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]struct{}{}
	for i := 0; i < 25; i++ {
		input := annInput()
		input.Name = input.Name + string(rune('A'+i))
		user, err := svc.CreateUser(ctx, input)
		require.NoError(t, err)
		_, dup := seen[user.ID]
		require.False(t, dup, "duplicate id %s", user.ID)
		seen[user.ID] = struct{}{}
	}
}

func TestCreateUserDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, annInput())
	require.NoError(t, err)

	again := annInput()
	again.Email = "other@x.com"
	again.Description = "other"
	_, err = svc.CreateUser(ctx, again)
	require.Error(t, err)

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrorKindConflict, de.Kind)
	assert.Equal(t, "User with the name 'Ann' already exists", de.Message)
}

func TestUpdateUserRefreshesOnlyUpdatedAt(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, annInput())
	require.NoError(t, err)

	clock.Advance(time.Minute)
	desc := "x"
	updated, err := svc.UpdateUser(ctx, created.ID, domain.UserChanges{Description: &desc})
	require.NoError(t, err)

	want := *created
	want.Description = "x"
	want.UpdatedAt = "10/18/2026, 12:01:00 PM"
	assert.Equal(t, want, *updated)
}

func TestUpdateUserMissing(t *testing.T) {
	svc, _ := newTestService(t)
	name := "Zed"
	_, err := svc.UpdateUser(context.Background(), "missing", domain.UserChanges{Name: &name})
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteThenGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, annInput())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, created.ID))

	_, err = svc.GetUser(ctx, created.ID)
	assert.True(t, domain.IsNotFound(err))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
