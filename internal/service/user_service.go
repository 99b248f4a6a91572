package service

import (
	"context"

	"github.com/google/uuid"

	"user-api/internal/domain"
	"user-api/internal/repository"
)

// UserService describes user lifecycle operations. Repository errors are
// returned unchanged.
type UserService interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type userService struct {
	users repository.UserRepository
	clock domain.Clock
	newID func() string
}

func NewUserService(users repository.UserRepository, clock domain.Clock) UserService {
	return &userService{
		users: users,
		clock: clock,
		newID: uuid.NewString,
	}
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *userService) CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error) {
	now := domain.FormatTimestamp(s.clock.Now())
	user := &domain.User{
		ID:          s.newID(),
		Name:        input.Name,
		Email:       input.Email,
		Password:    input.Password,
		Mobile:      input.Mobile,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.users.Create(ctx, user)
}

// UpdateUser delegates as is; the repository refreshes UpdatedAt.
func (s *userService) UpdateUser(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	return s.users.Update(ctx, id, changes)
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}
