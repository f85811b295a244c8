package jobs

import (
	"context"
	"time"

	"dinehub/internal/repositories"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// TokenCleanup periodically deletes expired refresh and password reset
// tokens. Expired tokens are already unusable; this only reclaims rows.
type TokenCleanup struct {
	scheduler gocron.Scheduler
	tokenRepo repositories.TokenRepository
	logger    *zap.Logger
}

func NewTokenCleanup(tokenRepo repositories.TokenRepository, logger *zap.Logger) (*TokenCleanup, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	tc := &TokenCleanup{
		scheduler: scheduler,
		tokenRepo: tokenRepo,
		logger:    logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(tc.run),
		gocron.WithName("expired-token-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return tc, nil
}

func (tc *TokenCleanup) Start() {
	tc.scheduler.Start()
	tc.logger.Info("token cleanup scheduler started")
}

func (tc *TokenCleanup) Stop() error {
	return tc.scheduler.Shutdown()
}

func (tc *TokenCleanup) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := tc.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		tc.logger.Error("token cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		tc.logger.Info("expired tokens deleted", zap.Int64("count", deleted))
	}
}
