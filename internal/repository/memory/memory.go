package memory

import (
	"context"
	"sync"

	"github.com/policyfence/policyfence/internal/db"
	"github.com/policyfence/policyfence/internal/repository"
)

type MemoryRepository struct {
	users map[string]*db.User // keyed by username
	mu    sync.RWMutex
}

func New() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*db.User),
	}
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *db.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Username] = user
	return nil
}

// Interface check
var _ repository.UserRepository = (*MemoryRepository)(nil)
