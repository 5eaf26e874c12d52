package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/repository"
)

// StartTokenSweeper periodically deletes refresh tokens that are both
// expired and revoked. Housekeeping only; correctness never depends on it
// because activity checks look at revoked_at and expires_at directly.
func StartTokenSweeper(ctx context.Context, tokens repository.RefreshTokenRepository, interval time.Duration, logger *zap.Logger) {
	if tokens == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := tokens.DeleteExpiredRevoked(ctx, time.Now())
				if err != nil {
					logger.Warn("refresh token sweep failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					logger.Info("purged refresh tokens", zap.Int64("count", purged))
				}
			}
		}
	}()
}
