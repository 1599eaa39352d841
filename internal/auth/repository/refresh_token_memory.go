package repository

import (
	"context"
	"sync"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
	"github.com/AlibekovAA/taskflow/backend/internal/common/clock"
)

// MemoryRefreshTokenRepository is a process-local store for development and
// tests. Records are lost on restart.
type MemoryRefreshTokenRepository struct {
	mu     sync.RWMutex
	byHash map[string]authdomain.RefreshToken
	byID   map[string]string
	clock  clock.Clock
}

func NewMemoryRefreshTokenRepository(clk clock.Clock) *MemoryRefreshTokenRepository {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &MemoryRefreshTokenRepository{
		byHash: make(map[string]authdomain.RefreshToken),
		byID:   make(map[string]string),
		clock:  clk,
	}
}

func (r *MemoryRefreshTokenRepository) Create(ctx context.Context, token authdomain.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(token)
	return nil
}

func (r *MemoryRefreshTokenRepository) FindExact(ctx context.Context, tokenHash string, userID string) (authdomain.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return authdomain.RefreshToken{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.byHash[tokenHash]
	if !ok || token.UserID != userID {
		return authdomain.RefreshToken{}, ErrRefreshTokenNotFound
	}
	return token, nil
}

func (r *MemoryRefreshTokenRepository) DeleteByToken(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(tokenHash)
	return nil
}

func (r *MemoryRefreshTokenRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if hash, ok := r.byID[id]; ok {
		r.remove(hash)
	}
	return nil
}

func (r *MemoryRefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.byHash {
		if token.UserID == userID {
			r.remove(hash)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRefreshTokenRepository) Rotate(ctx context.Context, oldTokenHash string, next authdomain.RefreshToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[oldTokenHash]; !ok {
		return ErrRefreshTokenNotFound
	}
	r.remove(oldTokenHash)
	r.put(next)
	return nil
}

func (r *MemoryRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, token := range r.byHash {
		if token.ExpiredAt(now) {
			r.remove(hash)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryRefreshTokenRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHash)
}

func (r *MemoryRefreshTokenRepository) put(token authdomain.RefreshToken) {
	r.byHash[token.TokenHash] = token
	r.byID[token.ID] = token.TokenHash
}

func (r *MemoryRefreshTokenRepository) remove(hash string) {
	if token, ok := r.byHash[hash]; ok {
		delete(r.byID, token.ID)
		delete(r.byHash, hash)
	}
}
