package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/config"
)

// PurgeLoginAttempts deletes ledger rows older than the retention period.
func (s *AuthService) PurgeLoginAttempts(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.policy.AttemptRetention)
	n, err := s.loginAttempts.DeleteLoginAttemptsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge login attempts: %w", err)
	}
	return n, nil
}

// PurgeRefreshTokens deletes expired refresh tokens. Revoked but unexpired
// rows stay so that presenting them still trips reuse detection.
func (s *AuthService) PurgeRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshTokens.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return n, nil
}

// RunCleanup performs one maintenance pass, logging instead of returning
// errors so a failing purge does not stop the other.
func (s *AuthService) RunCleanup(ctx context.Context) {
	if n, err := s.PurgeLoginAttempts(ctx); err != nil {
		s.logger.ErrorContext(ctx, "cleanup failed", "job", "login_attempts", "error", err)
	} else {
		s.logger.InfoContext(ctx, "cleanup finished", "job", "login_attempts", "deleted", n)
	}

	if n, err := s.PurgeRefreshTokens(ctx); err != nil {
		s.logger.ErrorContext(ctx, "cleanup failed", "job", "refresh_tokens", "error", err)
	} else {
		s.logger.InfoContext(ctx, "cleanup finished", "job", "refresh_tokens", "deleted", n)
	}
}

// StartCleanup runs RunCleanup every interval until ctx is cancelled. The
// returned channel is closed once the loop exits.
func (s *AuthService) StartCleanup(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = time.Duration(config.DefaultCleanupIntervalMinutes) * time.Minute
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunCleanup(ctx)
			}
		}
	}()
	return done
}
