package repository

import (
	"context"

	"user-api/internal/domain"
)

// UserRepository defines persistence operations for User records.
//
// Implementations enforce name uniqueness and id existence and return
// *domain.Error values classified for the HTTP boundary.
type UserRepository interface {
	Init(ctx context.Context) error
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update checks changes.Name against every stored name, the updated
	// record's own included, before looking the record up.
	Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
