package memory

import (
	"context"
	"sync"
	"time"

	domainUser "lxcloud/internal/domain/user"
	appErrors "lxcloud/pkg/errors"

	"github.com/google/uuid"
)

// UserRepository is an in-process user store for tests and the
// no-database mode.
type UserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domainUser.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]*domainUser.User)}
}

func (r *UserRepository) Create(_ context.Context, u *domainUser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return appErrors.ErrUserAlreadyExists
		}
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()

	stored := *u
	r.users[u.ID] = &stored

	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, appErrors.ErrUserNotFound
	}

	out := *u
	return &out, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domainUser.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}

	return nil, appErrors.ErrUserNotFound
}

func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.users)), nil
}

func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return appErrors.ErrUserNotFound
	}
	delete(r.users, id)

	return nil
}
