package domain

import (
	"slices"
	"time"
)

type User struct {
	ID             string
	Email          string
	FullName       string
	OrganizationID *string
	PasswordHash   string
	IsActive       bool
	EmailVerified  bool
	LoginAttempts  int
	IsLocked       bool
	LockedUntil    *time.Time
	Roles          []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockExpired reports whether a locked account's lock window has passed.
// A lock without LockedUntil is a manual lock and never expires on its own.
func (u *User) LockExpired(now time.Time) bool {
	return u.IsLocked && u.LockedUntil != nil && u.LockedUntil.Before(now)
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// UserUpdate is a partial update; nil fields are left untouched.
// ClearLockedUntil sets locked_until to NULL and takes precedence over LockedUntil.
type UserUpdate struct {
	PasswordHash     *string
	EmailVerified    *bool
	LoginAttempts    *int
	IsLocked         *bool
	LockedUntil      *time.Time
	ClearLockedUntil bool
}

func (u UserUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.EmailVerified == nil && u.LoginAttempts == nil &&
		u.IsLocked == nil && u.LockedUntil == nil && !u.ClearLockedUntil
}

// Apply copies the set fields onto user. Stores use it to keep in-memory
// copies consistent with what they persisted.
func (u UserUpdate) Apply(user *User) {
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.EmailVerified != nil {
		user.EmailVerified = *u.EmailVerified
	}
	if u.LoginAttempts != nil {
		user.LoginAttempts = *u.LoginAttempts
	}
	if u.IsLocked != nil {
		user.IsLocked = *u.IsLocked
	}
	if u.ClearLockedUntil {
		user.LockedUntil = nil
	} else if u.LockedUntil != nil {
		t := *u.LockedUntil
		user.LockedUntil = &t
	}
}

type RefreshToken struct {
	ID            string
	UserID        string
	JTI           string
	TokenHash     string
	DeviceID      *string
	IPAddress     string
	UserAgent     *string
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	RevokedReason *string
	ReplacedByJTI *string
	CreatedAt     time.Time
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}

type LoginAttempt struct {
	ID            string
	Email         string
	UserID        *string
	IPAddress     string
	UserAgent     *string
	Success       bool
	FailureReason *string
	AttemptedAt   time.Time
}

type Organization struct {
	ID        string
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
