package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/tourhubapp/tourhub-server/internal/auth"
	"github.com/tourhubapp/tourhub-server/internal/logger"
)

// TokenPruneJob periodically deletes expired token records.
type TokenPruneJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *TokenPruneJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideTokenPruneJob provides the periodic expired-token cleanup job.
func ProvideTokenPruneJob(i do.Injector) (*TokenPruneJob, error) {
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		// Initial cleanup on startup
		if count, err := tokens.PruneExpired(ctx); err != nil {
			log.Warn("Initial token cleanup failed", "error", err)
		} else if count > 0 {
			log.Info("Initial token cleanup completed", "deleted", count)
		}

		for {
			select {
			case <-ticker.C:
				if count, err := tokens.PruneExpired(ctx); err != nil {
					log.Warn("Token cleanup failed", "error", err)
				} else if count > 0 {
					log.Info("Token cleanup completed", "deleted", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Token cleanup job started")

	return &TokenPruneJob{cancel: cancel}, nil
}
