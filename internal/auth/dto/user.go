package dto

import (
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
)

// UserOutput is the public projection of a user returned at login.
type UserOutput struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	Roles          []string `json:"roles"`
	OrganizationID *string  `json:"organization_id,omitempty"`
}

type SessionOutput struct {
	ID        string    `json:"id"`
	DeviceID  *string   `json:"device_id,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewUserOutput(u *domain.User) UserOutput {
	roles := make([]string, len(u.Roles))
	copy(roles, u.Roles)
	return UserOutput{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Roles:          roles,
		OrganizationID: u.OrganizationID,
	}
}

func NewSessionOutput(rt *domain.RefreshToken) SessionOutput {
	return SessionOutput{
		ID:        rt.ID,
		DeviceID:  rt.DeviceID,
		IPAddress: rt.IPAddress,
		UserAgent: rt.UserAgent,
		CreatedAt: rt.CreatedAt,
		ExpiresAt: rt.ExpiresAt,
	}
}
