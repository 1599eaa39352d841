package cleanup

import (
	"context"
	"time"

	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
	"github.com/AlibekovAA/taskflow/backend/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartRefreshTokenCleanup deletes expired refresh token records every
// interval until ctx is cancelled. Refresh validation never relies on it.
func StartRefreshTokenCleanup(ctx context.Context, repo ExpiredDeleter, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		log.Warn("refresh token cleanup disabled: non-positive interval")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, repo, log)
		}
	}
}

func sweep(ctx context.Context, repo ExpiredDeleter, log *logger.Logger) int64 {
	deleted, err := repo.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("refresh token cleanup failed: %v", err)
		}
		return 0
	}
	if deleted > 0 {
		metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
		log.Infof("refresh token cleanup: deleted %d expired tokens", deleted)
	}
	return deleted
}
