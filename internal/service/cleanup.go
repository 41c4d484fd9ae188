package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultCleanupInterval = time.Hour

// TokenSweeper is the part of TokenStore the cleanup loop needs.
type TokenSweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CleanupExpiredTokens removes refresh tokens that expired before now and
// returns how many were removed.
func CleanupExpiredTokens(ctx context.Context, store TokenSweeper, now time.Time) (int64, error) {
	return store.DeleteExpired(ctx, now)
}

// RunTokenCleanup sweeps expired refresh tokens once right away and then
// every interval until ctx is cancelled.
func RunTokenCleanup(ctx context.Context, store TokenSweeper, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	sweep := func() {
		n, err := CleanupExpiredTokens(ctx, store, time.Now().UTC())
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("token cleanup failed", zap.Error(err))
			}
			return
		}
		if n > 0 {
			log.Info("expired refresh tokens removed", zap.Int64("count", n))
		}
	}

	sweep()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep()
		}
	}
}
