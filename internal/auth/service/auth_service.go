package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/config"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/google/uuid"
)

// Dependencies are the ports the engine orchestrates. Clock and Logger are
// optional.
type Dependencies struct {
	Users         domain.UserRepository
	LoginAttempts domain.LoginAttemptRepository
	RefreshTokens domain.RefreshTokenRepository
	Organizations domain.OrganizationRepository
	Notifier      domain.Notifier
	Hasher        PasswordHasher
	AccessSigner  TokenSigner
	RefreshSigner TokenSigner
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Policy holds the lifetimes and limits applied by the engine.
type Policy struct {
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	MaxActiveTokens      int
	MaxFailedAttempts    int
	FailureWindow        time.Duration
	LockoutDuration      time.Duration
	AttemptRetention     time.Duration
}

func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		cfg = &config.Config{}
	}
	minutes := func(v, def int) time.Duration {
		if v <= 0 {
			v = def
		}
		return time.Duration(v) * time.Minute
	}
	positive := func(v, def int) int {
		if v <= 0 {
			return def
		}
		return v
	}

	return Policy{
		AccessTokenTTL:       minutes(cfg.AccessExpiryMin, config.DefaultAccessTokenExpiryMin),
		RefreshTokenTTL:      minutes(cfg.RefreshExpiryMin, config.DefaultRefreshTokenExpiryMin),
		VerificationTokenTTL: minutes(cfg.EmailVerificationExpiryMin, config.DefaultEmailVerificationExpiry),
		ResetTokenTTL:        minutes(cfg.PasswordResetExpiryMin, config.DefaultPasswordResetExpiry),
		MaxActiveTokens:      positive(cfg.MaxActiveRefreshTokens, config.DefaultMaxActiveRefreshTokens),
		MaxFailedAttempts:    positive(cfg.LoginMaxAttempts, config.DefaultLoginMaxAttempts),
		FailureWindow:        minutes(cfg.LoginWindowMinutes, config.DefaultLoginWindowMinutes),
		LockoutDuration:      minutes(cfg.LockoutDurationMinutes, config.DefaultLockoutDurationMinutes),
		AttemptRetention:     time.Duration(positive(cfg.LoginAttemptRetentionDays, config.DefaultLoginAttemptRetentionDays)) * 24 * time.Hour,
	}
}

// AuthService is the authentication engine. It holds no per-request state
// and is safe for concurrent use; every invariant it relies on is enforced
// by the stores.
type AuthService struct {
	users         domain.UserRepository
	loginAttempts domain.LoginAttemptRepository
	refreshTokens domain.RefreshTokenRepository
	organizations domain.OrganizationRepository
	notifier      domain.Notifier
	hasher        PasswordHasher
	accessSigner  TokenSigner
	refreshSigner TokenSigner
	tokenPepper   []byte
	policy        Policy
	logger        *slog.Logger
	now           func() time.Time
}

func NewAuthService(deps Dependencies, cfg *config.Config) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	var pepper []byte
	if cfg != nil {
		pepper = []byte(cfg.RefreshTokenSecret)
	}

	return &AuthService{
		users:         deps.Users,
		loginAttempts: deps.LoginAttempts,
		refreshTokens: deps.RefreshTokens,
		organizations: deps.Organizations,
		notifier:      deps.Notifier,
		hasher:        deps.Hasher,
		accessSigner:  deps.AccessSigner,
		refreshSigner: deps.RefreshSigner,
		tokenPepper:   pepper,
		policy:        PolicyFromConfig(cfg),
		logger:        logger.With("component", "auth_service"),
		now:           clock,
	}
}

func (s *AuthService) Policy() Policy {
	return s.policy
}

func (s *AuthService) Signup(ctx context.Context, input dto.SignupInput) (*dto.SignupResponse, error) {
	in, err := dto.ValidateSignup(input)
	if err != nil {
		return nil, err
	}

	if in.OrganizationID != nil {
		org, err := s.organizations.GetOrganizationByID(ctx, *in.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get organization: %w", err)
		}
		if org == nil || !org.IsActive {
			s.logger.WarnContext(ctx, "signup rejected: organization not found", "organization_id", *in.OrganizationID)
			return nil, autherror.ErrOrganizationNotFound
		}
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email availability: %w", err)
	}
	if existing != nil {
		s.logger.WarnContext(ctx, "signup rejected: email already in use")
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		FullName:       in.FullName,
		OrganizationID: in.OrganizationID,
		PasswordHash:   hashed,
		IsActive:       true,
		EmailVerified:  false,
		LoginAttempts:  0,
		IsLocked:       false,
		Roles:          []string{authconstant.DefaultUserRole},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, autherror.ErrEmailAlreadyInUse) {
			return nil, autherror.ErrEmailAlreadyInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)

	s.sendVerification(ctx, user)

	return &dto.SignupResponse{
		Message: authconstant.MsgSignupSuccess,
		UserID:  user.ID,
	}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, input dto.TokenInput) (*dto.MessageResponse, error) {
	in, err := dto.ValidateTokenInput(input)
	if err != nil {
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	userID, err := s.verifyActionToken(in.Token, authconstant.TokenTypeEmailVerification)
	if err != nil {
		s.logger.WarnContext(ctx, "email verification rejected", "error", err)
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		s.logger.WarnContext(ctx, "email verification rejected: user not found", "user_id", userID)
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	if user.EmailVerified {
		return &dto.MessageResponse{Message: authconstant.MsgEmailAlreadyValid}, nil
	}

	verified := true
	if err := s.users.Update(ctx, user.ID, domain.UserUpdate{EmailVerified: &verified}); err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)

	return &dto.MessageResponse{Message: authconstant.MsgEmailVerified}, nil
}

// ResendVerification answers identically whether or not the account exists
// or is already verified.
func (s *AuthService) ResendVerification(ctx context.Context, input dto.EmailInput) (*dto.MessageResponse, error) {
	resp := &dto.MessageResponse{Message: authconstant.MsgVerificationSent}

	in, err := dto.ValidateEmailInput(input)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil || user.EmailVerified {
		return resp, nil
	}

	s.sendVerification(ctx, user)
	return resp, nil
}

// ForgotPassword answers identically whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, input dto.EmailInput) (*dto.MessageResponse, error) {
	resp := &dto.MessageResponse{Message: authconstant.MsgPasswordResetSent}

	in, err := dto.ValidateEmailInput(input)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil {
		return resp, nil
	}

	token, err := s.signActionToken(user.ID, authconstant.TokenTypePasswordReset, s.policy.ResetTokenTTL)
	if err != nil {
		return nil, err
	}
	// A delivery failure only happens for existing accounts, so it is logged
	// and never surfaced.
	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email", "user_id", user.ID, "error", err)
	} else {
		s.logger.InfoContext(ctx, "password reset email sent", "user_id", user.ID)
	}

	return resp, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) (*dto.MessageResponse, error) {
	in, err := dto.ValidateResetPassword(input)
	if err != nil {
		return nil, err
	}

	userID, err := s.verifyActionToken(in.Token, authconstant.TokenTypePasswordReset)
	if err != nil {
		s.logger.WarnContext(ctx, "password reset rejected", "error", err)
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		s.logger.WarnContext(ctx, "password reset rejected: user not found", "user_id", userID)
		return nil, autherror.ErrInvalidOrExpiredToken
	}

	hashed, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, err
	}

	zero, unlocked := 0, false
	if err := s.users.Update(ctx, user.ID, domain.UserUpdate{
		PasswordHash:     &hashed,
		LoginAttempts:    &zero,
		IsLocked:         &unlocked,
		ClearLockedUntil: true,
	}); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	revoked, err := s.refreshTokens.RevokeAllRefreshTokensByUserID(ctx, user.ID, authconstant.RevokedReasonPasswordReset)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	if err := s.notifier.SendPasswordChanged(ctx, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password changed email", "user_id", user.ID, "error", err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID, "revoked_sessions", revoked)

	return &dto.MessageResponse{Message: authconstant.MsgPasswordResetDone}, nil
}

// UnlockAccount clears the lock state of any user. Only SUPER_ADMIN may call it.
func (s *AuthService) UnlockAccount(ctx context.Context, principal domain.Principal, userID string) (*dto.MessageResponse, error) {
	if !domain.CanUnlockAccounts(principal) {
		s.logger.WarnContext(ctx, "unlock rejected: insufficient permissions", "actor_id", principal.UserID, "user_id", userID)
		return nil, autherror.ErrInsufficientPermissions
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	if err := s.users.Update(ctx, user.ID, clearLock()); err != nil {
		return nil, fmt.Errorf("failed to unlock account: %w", err)
	}
	s.logger.InfoContext(ctx, "account unlocked manually", "user_id", user.ID, "actor_id", principal.UserID)

	return &dto.MessageResponse{Message: authconstant.MsgAccountUnlocked}, nil
}

// Authenticate turns a bearer access token into a Principal.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Principal, error) {
	if accessToken == "" {
		return nil, autherror.ErrAuthenticationNeeded
	}

	claims, err := s.accessSigner.Verify(accessToken)
	if err != nil || claims.Type != authconstant.TokenTypeAccess || claims.UserID == "" {
		s.logger.DebugContext(ctx, "access token rejected", "error", err)
		return nil, autherror.ErrInvalidAccessToken
	}

	return &domain.Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Roles:          claims.Roles,
		OrganizationID: claims.OrganizationID,
	}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.signActionToken(user.ID, authconstant.TokenTypeEmailVerification, s.policy.VerificationTokenTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to sign verification token", "user_id", user.ID, "error", err)
		return
	}
	if err := s.notifier.SendVerification(ctx, user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email", "user_id", user.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "verification email sent", "user_id", user.ID)
}

func (s *AuthService) signActionToken(userID, tokenType string, ttl time.Duration) (string, error) {
	return s.accessSigner.Sign(&TokenClaims{UserID: userID, Type: tokenType}, ttl)
}

// verifyActionToken returns the user id of a valid action token of the
// given type. Expired, tampered and mistyped tokens are all the same error.
func (s *AuthService) verifyActionToken(token, tokenType string) (string, error) {
	claims, err := s.accessSigner.Verify(token)
	if err != nil {
		return "", err
	}
	if claims.Type != tokenType {
		return "", fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims.UserID, nil
}

func clearLock() domain.UserUpdate {
	zero, unlocked := 0, false
	return domain.UserUpdate{
		LoginAttempts:    &zero,
		IsLocked:         &unlocked,
		ClearLockedUntil: true,
	}
}
