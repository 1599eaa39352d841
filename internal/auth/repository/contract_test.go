package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/AlibekovAA/taskflow/backend/internal/auth/domain"
)

func newRecord(n int, userID string, now time.Time) authdomain.RefreshToken {
	return authdomain.RefreshToken{
		ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", n),
		TokenHash: authdomain.HashRefreshToken(fmt.Sprintf("token-%d", n)),
		UserID:    userID,
		ExpiresAt: now.Add(7 * 24 * time.Hour).Truncate(time.Millisecond),
		CreatedAt: now.Truncate(time.Millisecond),
	}
}

// runRepositoryContract checks the behaviour every store implementation
// shares. users must hold two distinct existing user ids.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) RefreshTokenRepository, users [2]string) {
	now := time.Now().UTC()
	alice, bob := users[0], users[1]

	t.Run("create then find exact", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := newRecord(1, alice, now)

		require.NoError(t, repo.Create(ctx, rec))

		got, err := repo.FindExact(ctx, rec.TokenHash, alice)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.UserID, got.UserID)
		assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt), "expires_at %v != %v", rec.ExpiresAt, got.ExpiresAt)
	})

	t.Run("find requires matching subject", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := newRecord(2, alice, now)
		require.NoError(t, repo.Create(ctx, rec))

		_, err := repo.FindExact(ctx, rec.TokenHash, bob)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

		_, err = repo.FindExact(ctx, authdomain.HashRefreshToken("unknown"), alice)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("delete by token is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		rec := newRecord(3, alice, now)
		require.NoError(t, repo.Create(ctx, rec))

		require.NoError(t, repo.DeleteByToken(ctx, rec.TokenHash))
		require.NoError(t, repo.DeleteByToken(ctx, rec.TokenHash))

		_, err := repo.FindExact(ctx, rec.TokenHash, alice)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("delete by id leaves other records", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		first := newRecord(4, alice, now)
		second := newRecord(5, alice, now)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		require.NoError(t, repo.DeleteByID(ctx, first.ID))
		require.NoError(t, repo.DeleteByID(ctx, first.ID))

		_, err := repo.FindExact(ctx, first.TokenHash, alice)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
		_, err = repo.FindExact(ctx, second.TokenHash, alice)
		assert.NoError(t, err)
	})

	t.Run("delete by user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newRecord(6, alice, now)))
		require.NoError(t, repo.Create(ctx, newRecord(7, alice, now)))
		keep := newRecord(8, bob, now)
		require.NoError(t, repo.Create(ctx, keep))

		removed, err := repo.DeleteByUserID(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		_, err = repo.FindExact(ctx, keep.TokenHash, bob)
		assert.NoError(t, err)
	})

	t.Run("rotate replaces record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		old := newRecord(9, alice, now)
		next := newRecord(10, alice, now.Add(time.Minute))
		require.NoError(t, repo.Create(ctx, old))

		require.NoError(t, repo.Rotate(ctx, old.TokenHash, next))

		_, err := repo.FindExact(ctx, old.TokenHash, alice)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
		_, err = repo.FindExact(ctx, next.TokenHash, alice)
		assert.NoError(t, err)

		err = repo.Rotate(ctx, old.TokenHash, newRecord(11, alice, now))
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("concurrent rotate has a single winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		old := newRecord(12, alice, now)
		require.NoError(t, repo.Create(ctx, old))

		const racers = 8
		var wg sync.WaitGroup
		errs := make(chan error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- repo.Rotate(ctx, old.TokenHash, newRecord(100+i, alice, now))
			}(i)
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
		}
		assert.Equal(t, 1, wins)
	})
}
