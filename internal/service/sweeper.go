package service

import (
	"context"
	"time"

	"authcore/internal/logger"
)

// TokenSweeper periodically deletes expired inactive tokens.
type TokenSweeper struct {
	tokens   TokenService
	interval time.Duration
	log      *logger.Logger
}

// NewTokenSweeper creates a sweeper running every interval.
func NewTokenSweeper(tokens TokenService, interval time.Duration, log *logger.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TokenSweeper{tokens: tokens, interval: interval, log: log}
}

// Run sweeps until ctx is done. A failed sweep is logged and retried on the next tick.
func (s *TokenSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.tokens.CleanupExpiredTokens(ctx); err != nil {
				s.log.Error("token sweep failed", "error", err)
			}
		}
	}
}
