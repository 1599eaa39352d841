package repository

import (
	"context"
	"sync"

	"github.com/AlibekovAA/taskflow/backend/internal/user/domain"
)

// MemoryRepository is a process-local user store used by tests and local
// runs without Postgres.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[domain.ID]domain.User
	byEmail map[string]domain.ID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[domain.ID]domain.User),
		byEmail: make(map[string]domain.ID),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.NormalizeEmail(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailAlreadyExists
	}
	r.byID[user.ID] = user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id domain.ID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryRepository) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	oldKey := domain.NormalizeEmail(current.Email)
	newKey := domain.NormalizeEmail(user.Email)
	if newKey != oldKey {
		if _, taken := r.byEmail[newKey]; taken {
			return ErrEmailAlreadyExists
		}
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = user.ID
	}

	current.Name = user.Name
	current.Email = user.Email
	current.UpdatedAt = user.UpdatedAt
	r.byID[user.ID] = current
	return nil
}
