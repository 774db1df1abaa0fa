package domain

//go:generate mockgen -destination=../../mocks/mock_repository.go -package=mocks github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain UserRepository,LoginAttemptRepository,RefreshTokenRepository,OrganizationRepository,Notifier

import (
	"context"
	"time"
)

// UserRepository returns (nil, nil) from the Get methods when no row matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, update UserUpdate) error
	Delete(ctx context.Context, id string) error
}

type LoginAttemptRepository interface {
	RecordLoginAttempt(ctx context.Context, attempt *LoginAttempt) error
	CountRecentFailedAttempts(ctx context.Context, email string, since time.Time) (int, error)
	DeleteLoginAttemptsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshTokenByJTI(ctx context.Context, jti string) (*RefreshToken, error)
	GetActiveRefreshTokensByUserID(ctx context.Context, userID string, now time.Time) ([]*RefreshToken, error)
	// RevokeRefreshToken revokes the token only if it is not already revoked
	// and reports whether this call performed the revocation.
	RevokeRefreshToken(ctx context.Context, jti, reason string, replacedByJTI *string) (bool, error)
	// RotateRefreshToken revokes oldJTI with the rotation reason and stores
	// next in one transaction. It returns false, storing nothing, when oldJTI
	// was already revoked.
	RotateRefreshToken(ctx context.Context, oldJTI string, next *RefreshToken) (bool, error)
	RevokeAllRefreshTokensByUserID(ctx context.Context, userID, reason string) (int64, error)
	PruneOldestRefreshTokens(ctx context.Context, userID string, keep int, now time.Time) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// OrganizationRepository returns (nil, nil) when the organization does not exist.
type OrganizationRepository interface {
	GetOrganizationByID(ctx context.Context, id string) (*Organization, error)
}

type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendAccountLocked(ctx context.Context, email string, lockedUntil time.Time) error
	SendPasswordChanged(ctx context.Context, email string) error
}
