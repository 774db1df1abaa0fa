package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/google/uuid"
)

// Login authenticates a user by email and password. Every branch writes a
// login attempt before it returns.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResponse, error) {
	in, err := dto.ValidateLogin(input)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil {
		return nil, s.rejectLogin(ctx, in, nil, authconstant.FailureEmailNotFound, autherror.ErrInvalidCredentials)
	}

	now := s.now()
	if user.LockExpired(now) {
		if err := s.users.Update(ctx, user.ID, clearLock()); err != nil {
			return nil, fmt.Errorf("failed to unlock account: %w", err)
		}
		clearLock().Apply(user)
		s.logger.InfoContext(ctx, "account unlocked automatically", "user_id", user.ID)
	}

	if user.IsLocked {
		return nil, s.rejectLogin(ctx, in, user, authconstant.FailureAccountLocked, autherror.ErrAccountLocked)
	}
	if !user.IsActive {
		return nil, s.rejectLogin(ctx, in, user, authconstant.FailureAccountInactive, autherror.ErrInvalidCredentials)
	}
	if !user.EmailVerified {
		return nil, s.rejectLogin(ctx, in, user, authconstant.FailureEmailNotVerified, autherror.ErrEmailNotVerified)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		if err := s.recordAttempt(ctx, in, user, authconstant.FailureInvalidPassword); err != nil {
			return nil, err
		}
		if err := s.applyLockoutPolicy(ctx, in.Email, user); err != nil {
			return nil, err
		}
		return nil, autherror.ErrInvalidCredentials
	}

	if user.LoginAttempts != 0 {
		zero := 0
		if err := s.users.Update(ctx, user.ID, domain.UserUpdate{LoginAttempts: &zero}); err != nil {
			return nil, fmt.Errorf("failed to reset login attempts: %w", err)
		}
		user.LoginAttempts = 0
	}
	if err := s.recordAttempt(ctx, in, user, ""); err != nil {
		return nil, err
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := s.issueRefreshToken(ctx, user.ID, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	// The new session is already stored, so a failed prune only leaves the
	// family temporarily over its bound.
	if pruned, err := s.refreshTokens.PruneOldestRefreshTokens(ctx, user.ID, s.policy.MaxActiveTokens, s.now()); err != nil {
		s.logger.WarnContext(ctx, "failed to prune refresh tokens", "user_id", user.ID, "error", err)
	} else if pruned > 0 {
		s.logger.InfoContext(ctx, "pruned refresh tokens", "user_id", user.ID, "count", pruned)
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID, "ip", in.IPAddress)

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    authconstant.DefaultTokenType,
		ExpiresIn:    int(s.policy.AccessTokenTTL.Seconds()),
		User:         dto.NewUserOutput(user),
	}, nil
}

// applyLockoutPolicy counts failures for the email over the trailing window,
// the attempt just recorded included, and locks the account at the threshold.
func (s *AuthService) applyLockoutPolicy(ctx context.Context, email string, user *domain.User) error {
	now := s.now()
	failures, err := s.loginAttempts.CountRecentFailedAttempts(ctx, email, now.Add(-s.policy.FailureWindow))
	if err != nil {
		return fmt.Errorf("failed to count login failures: %w", err)
	}

	attempts := user.LoginAttempts + 1
	if failures < s.policy.MaxFailedAttempts {
		if err := s.users.Update(ctx, user.ID, domain.UserUpdate{LoginAttempts: &attempts}); err != nil {
			return fmt.Errorf("failed to increment login attempts: %w", err)
		}
		return nil
	}

	locked := true
	lockedUntil := now.Add(s.policy.LockoutDuration).UTC()
	if err := s.users.Update(ctx, user.ID, domain.UserUpdate{
		LoginAttempts: &attempts,
		IsLocked:      &locked,
		LockedUntil:   &lockedUntil,
	}); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	s.logger.WarnContext(ctx, "account locked due to failed attempts",
		"user_id", user.ID, "failures", failures, "locked_until", lockedUntil)

	if err := s.notifier.SendAccountLocked(ctx, user.Email, lockedUntil); err != nil {
		s.logger.ErrorContext(ctx, "failed to send account locked email", "user_id", user.ID, "error", err)
	}
	return nil
}

// rejectLogin records a failed attempt and returns the caller-facing error.
// The reason only ever reaches the ledger and the log.
func (s *AuthService) rejectLogin(ctx context.Context, in dto.LoginInput, user *domain.User, reason string, cause error) error {
	if err := s.recordAttempt(ctx, in, user, reason); err != nil {
		return err
	}
	var userID string
	if user != nil {
		userID = user.ID
	}
	s.logger.WarnContext(ctx, "login rejected", "reason", reason, "user_id", userID, "ip", in.IPAddress)
	return cause
}

// recordAttempt appends to the ledger. An empty reason records a success.
// The ledger drives lockout, so a failed write fails the login.
func (s *AuthService) recordAttempt(ctx context.Context, in dto.LoginInput, user *domain.User, reason string) error {
	attempt := &domain.LoginAttempt{
		ID:          uuid.NewString(),
		Email:       in.Email,
		IPAddress:   in.IPAddress,
		UserAgent:   optional(in.UserAgent),
		Success:     reason == "",
		AttemptedAt: s.now().UTC(),
	}
	if user != nil {
		id := user.ID
		attempt.UserID = &id
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}

	if err := s.loginAttempts.RecordLoginAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

func (s *AuthService) issueAccessToken(user *domain.User) (string, error) {
	roles := make([]string, len(user.Roles))
	copy(roles, user.Roles)

	return s.accessSigner.Sign(&TokenClaims{
		UserID:         user.ID,
		Email:          user.Email,
		Roles:          roles,
		OrganizationID: user.OrganizationID,
		Type:           authconstant.TokenTypeAccess,
	}, s.policy.AccessTokenTTL)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).UTC()
}
