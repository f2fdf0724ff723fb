package store

import (
	"context"
	"sync"
	"time"

	"github.com/userauth/apiserver/types"
)

// MemoryUserStore keeps users in process memory. It backs unit tests
// and the "memory" database driver; the mutex gives it the same
// uniqueness guarantee under concurrent registrations that the real
// backends get from their unique index.
type MemoryUserStore struct {
	mu      sync.Mutex
	byID    map[string]types.User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]types.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryUserStore) Create(ctx context.Context, user types.User) (types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return types.User{}, ErrDuplicateEmail
	}
	user.CreatedAt = time.Now()
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}
