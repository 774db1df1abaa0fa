package service

import (
	"context"
	"fmt"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/dto"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Refresh rotates a refresh token. A token that was already revoked or
// rotated burns every session of its owner.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	if input.RefreshToken == "" {
		return nil, autherror.ErrRefreshTokenMissing
	}

	claims, err := s.refreshSigner.Decode(input.RefreshToken)
	if err != nil || claims.ID == "" {
		s.logger.WarnContext(ctx, "refresh rejected: undecodable token", "ip", input.IPAddress)
		return nil, autherror.ErrInvalidRefreshToken
	}

	stored, err := s.refreshTokens.GetRefreshTokenByJTI(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if stored == nil {
		s.logger.WarnContext(ctx, "refresh rejected: unknown token", "ip", input.IPAddress)
		return nil, autherror.ErrInvalidRefreshToken
	}

	if stored.IsRevoked() {
		return nil, s.handleReuse(ctx, stored)
	}

	if stored.IsExpired(s.now()) {
		if _, err := s.refreshTokens.RevokeRefreshToken(ctx, stored.JTI, authconstant.RevokedReasonExpired, nil); err != nil {
			return nil, fmt.Errorf("failed to revoke expired refresh token: %w", err)
		}
		s.logger.InfoContext(ctx, "refresh rejected: token expired", "user_id", stored.UserID)
		return nil, autherror.ErrRefreshTokenExpired
	}

	if !tokenHashEqual(HashToken(input.RefreshToken, s.tokenPepper), stored.TokenHash) {
		s.logger.WarnContext(ctx, "refresh rejected: token hash mismatch", "user_id", stored.UserID)
		return nil, autherror.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		s.logger.WarnContext(ctx, "refresh rejected: user missing or inactive", "user_id", stored.UserID)
		return nil, autherror.ErrInvalidCredentials
	}

	ip := input.IPAddress
	if ip == "" {
		ip = stored.IPAddress
	}
	rawNext, next, err := s.newRefreshToken(user.ID, ip, input.UserAgent)
	if err != nil {
		return nil, err
	}
	next.DeviceID = stored.DeviceID

	rotated, err := s.refreshTokens.RotateRefreshToken(ctx, stored.JTI, next)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		// Another request revoked this token between our read and the
		// conditional update. From here that is indistinguishable from replay.
		return nil, s.handleReuse(ctx, stored)
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "refresh token rotated", "user_id", user.ID)

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: rawNext,
		TokenType:    authconstant.DefaultTokenType,
		ExpiresIn:    int(s.policy.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *AuthService) handleReuse(ctx context.Context, stored *domain.RefreshToken) error {
	revoked, err := s.refreshTokens.RevokeAllRefreshTokensByUserID(ctx, stored.UserID, authconstant.RevokedReasonReuseDetected)
	if err != nil {
		return fmt.Errorf("failed to revoke token family: %w", err)
	}
	s.logger.WarnContext(ctx, "refresh token reuse detected, all sessions revoked",
		"user_id", stored.UserID, "jti", stored.JTI, "revoked", revoked)
	return autherror.ErrTokenReuseDetected
}

// Logout revokes the presented refresh token. It reports success for
// missing, unknown and already revoked tokens alike.
func (s *AuthService) Logout(ctx context.Context, input dto.LogoutInput) (*dto.MessageResponse, error) {
	resp := &dto.MessageResponse{Message: authconstant.MsgLoggedOut}
	if input.RefreshToken == "" {
		return resp, nil
	}

	claims, err := s.refreshSigner.Decode(input.RefreshToken)
	if err != nil || claims.ID == "" {
		return resp, nil
	}

	revoked, err := s.refreshTokens.RevokeRefreshToken(ctx, claims.ID, authconstant.RevokedReasonLogout, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if revoked {
		s.logger.InfoContext(ctx, "user logged out", "jti", claims.ID)
	}
	return resp, nil
}

// ListSessions returns the active sessions of userID. Callers may list their
// own sessions; admins may list anyone's.
func (s *AuthService) ListSessions(ctx context.Context, principal domain.Principal, userID string) ([]dto.SessionOutput, error) {
	if !domain.CanManageSessions(principal, userID) {
		s.logger.WarnContext(ctx, "list sessions rejected: insufficient permissions", "actor_id", principal.UserID, "user_id", userID)
		return nil, autherror.ErrInsufficientPermissions
	}

	tokens, err := s.refreshTokens.GetActiveRefreshTokensByUserID(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]dto.SessionOutput, 0, len(tokens))
	for _, rt := range tokens {
		sessions = append(sessions, dto.NewSessionOutput(rt))
	}
	return sessions, nil
}

func (s *AuthService) ForceLogout(ctx context.Context, principal domain.Principal, userID string) (*dto.MessageResponse, error) {
	if !domain.CanForceLogout(principal) {
		s.logger.WarnContext(ctx, "force logout rejected: insufficient permissions", "actor_id", principal.UserID, "user_id", userID)
		return nil, autherror.ErrInsufficientPermissions
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	revoked, err := s.refreshTokens.RevokeAllRefreshTokensByUserID(ctx, user.ID, authconstant.RevokedReasonAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.logger.InfoContext(ctx, "sessions revoked by admin", "user_id", user.ID, "actor_id", principal.UserID, "revoked", revoked)

	return &dto.MessageResponse{Message: authconstant.MsgSessionsTerminated}, nil
}

// issueRefreshToken mints and stores a refresh token for a fresh login.
func (s *AuthService) issueRefreshToken(ctx context.Context, userID, ip, userAgent string) (string, *domain.RefreshToken, error) {
	raw, rt, err := s.newRefreshToken(userID, ip, userAgent)
	if err != nil {
		return "", nil, err
	}
	if err := s.refreshTokens.StoreRefreshToken(ctx, rt); err != nil {
		return "", nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return raw, rt, nil
}

// newRefreshToken signs a token carrying only a fresh jti and builds the
// record that will persist its hash.
func (s *AuthService) newRefreshToken(userID, ip, userAgent string) (string, *domain.RefreshToken, error) {
	jti := uuid.NewString()
	raw, err := s.refreshSigner.Sign(&TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: jti},
	}, s.policy.RefreshTokenTTL)
	if err != nil {
		return "", nil, err
	}

	now := s.now().UTC()
	return raw, &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		JTI:       jti,
		TokenHash: HashToken(raw, s.tokenPepper),
		IPAddress: ip,
		UserAgent: optional(userAgent),
		ExpiresAt: expiresAt(now, s.policy.RefreshTokenTTL),
		CreatedAt: now,
	}, nil
}
