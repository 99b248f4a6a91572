package jsonfile

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"user-api/internal/domain"
	"user-api/internal/repository"
	"user-api/internal/storage"
)

// Config describes where the document lives and how it is mirrored.
type Config struct {
	Path      string
	Mirror    storage.Mirror
	MirrorKey string
	Clock     domain.Clock
	Logger    *logrus.Logger
}

// UserRepository keeps the user document in memory and rewrites it on
// every mutation. Writers are serialized by mu.
type UserRepository struct {
	cfg Config

	mu     sync.RWMutex
	users  []domain.User
	loaded bool
}

func NewUserRepository(cfg Config) *UserRepository {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MirrorKey == "" {
		cfg.MirrorKey = "users/db.json"
	}
	return &UserRepository{cfg: cfg}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if r.cfg.Path == "" {
		return fmt.Errorf("document path is required")
	}

	users, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", r.cfg.Path, err)
	}

	r.mu.Lock()
	r.users = users
	r.loaded = true
	r.mu.Unlock()

	r.cfg.Logger.Infof("loaded %d users from %s", len(users), r.cfg.Path)
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, errNotLoaded
	}

	out := make([]domain.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, errNotLoaded
	}

	idx := r.indexByID(id)
	if idx < 0 {
		return nil, domain.NewNotFoundError(id)
	}
	user := r.users[idx]
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return nil, errNotLoaded
	}

	if r.indexByName(user.Name) >= 0 {
		return nil, domain.NewConflictError(user.Name)
	}
	if user.ID == "" {
		return nil, domain.NewInternalError("user id is required", nil)
	}
	if r.indexByID(user.ID) >= 0 {
		return nil, domain.NewInternalError(fmt.Sprintf("user id %s is already taken", user.ID), nil)
	}

	next := make([]domain.User, len(r.users), len(r.users)+1)
	copy(next, r.users)
	next = append(next, *user)
	if err := r.save(ctx, next); err != nil {
		return nil, domain.NewInternalError("save document", err)
	}
	r.users = next

	created := *user
	return &created, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, changes domain.UserChanges) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return nil, errNotLoaded
	}

	if changes.Name != nil && r.indexByName(*changes.Name) >= 0 {
		return nil, domain.NewConflictError(*changes.Name)
	}
	idx := r.indexByID(id)
	if idx < 0 {
		return nil, domain.NewNotFoundError(id)
	}

	updated := changes.Apply(r.users[idx], r.cfg.Clock.Now())
	next := make([]domain.User, len(r.users))
	copy(next, r.users)
	next[idx] = updated
	if err := r.save(ctx, next); err != nil {
		return nil, domain.NewInternalError("save document", err)
	}
	r.users = next

	return &updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return errNotLoaded
	}

	idx := r.indexByID(id)
	if idx < 0 {
		return domain.NewNotFoundError(id)
	}

	next := make([]domain.User, 0, len(r.users)-1)
	next = append(next, r.users[:idx]...)
	next = append(next, r.users[idx+1:]...)
	if err := r.save(ctx, next); err != nil {
		return domain.NewInternalError("save document", err)
	}
	r.users = next
	return nil
}

func (r *UserRepository) indexByID(id string) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *UserRepository) indexByName(name string) int {
	for i := range r.users {
		if r.users[i].Name == name {
			return i
		}
	}
	return -1
}

var errNotLoaded = domain.NewInternalError("user document has not been loaded", nil)

var _ repository.UserRepository = (*UserRepository)(nil)
