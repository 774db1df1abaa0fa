package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/auth/domain"
	autherror "github.com/AnthoniusHendriyanto/auth-core/internal/errors"
	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
)

// fakeClock is a manually advanced clock shared by the engine, the token
// signers and the in-memory stores.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore implements every repository port in memory with the same
// conditional semantics as the Postgres store.
type memStore struct {
	mu       sync.Mutex
	clock    *fakeClock
	users    map[string]*domain.User
	orgs     map[string]*domain.Organization
	attempts []*domain.LoginAttempt
	tokens   map[string]*domain.RefreshToken
	order    map[string]int
	seq      int
}

func newMemStore(clock *fakeClock) *memStore {
	return &memStore{
		clock:  clock,
		users:  map[string]*domain.User{},
		orgs:   map[string]*domain.Organization{},
		tokens: map[string]*domain.RefreshToken{},
		order:  map[string]int{},
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}

func copyToken(rt *domain.RefreshToken) *domain.RefreshToken {
	c := *rt
	return &c
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == domain.NormalizeEmail(email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return autherror.ErrEmailAlreadyInUse
		}
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *memStore) Update(_ context.Context, id string, update domain.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return autherror.ErrUserNotFound
	}
	update.Apply(u)
	u.UpdatedAt = m.clock.Now()
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memStore) user(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return copyUser(u)
	}
	return nil
}

func (m *memStore) RecordLoginAttempt(_ context.Context, attempt *domain.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *attempt
	m.attempts = append(m.attempts, &c)
	return nil
}

func (m *memStore) CountRecentFailedAttempts(_ context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.Email == email && !a.Success && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteLoginAttemptsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[:0]
	var n int64
	for _, a := range m.attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return n, nil
}

func (m *memStore) loginAttempts() []domain.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LoginAttempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		out = append(out, *a)
	}
	return out
}

func (m *memStore) StoreRefreshToken(_ context.Context, rt *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(rt)
	return nil
}

func (m *memStore) storeLocked(rt *domain.RefreshToken) {
	m.seq++
	m.tokens[rt.JTI] = copyToken(rt)
	m.order[rt.JTI] = m.seq
}

func (m *memStore) GetRefreshTokenByJTI(_ context.Context, jti string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.tokens[jti]; ok {
		return copyToken(rt), nil
	}
	return nil, nil
}

func (m *memStore) activeLocked(userID string, now time.Time) []*domain.RefreshToken {
	var out []*domain.RefreshToken
	for _, rt := range m.tokens {
		if rt.UserID == userID && !rt.IsRevoked() && !rt.IsExpired(now) {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.order[out[i].JTI] > m.order[out[j].JTI]
	})
	return out
}

func (m *memStore) GetActiveRefreshTokensByUserID(_ context.Context, userID string, now time.Time) ([]*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.activeLocked(userID, now)
	out := make([]*domain.RefreshToken, 0, len(active))
	for _, rt := range active {
		out = append(out, copyToken(rt))
	}
	return out, nil
}

func (m *memStore) revokeLocked(jti, reason string, replacedBy *string) bool {
	rt, ok := m.tokens[jti]
	if !ok || rt.IsRevoked() {
		return false
	}
	now := m.clock.Now()
	rt.RevokedAt = &now
	rt.RevokedReason = &reason
	rt.ReplacedByJTI = replacedBy
	return true
}

func (m *memStore) RevokeRefreshToken(_ context.Context, jti, reason string, replacedByJTI *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeLocked(jti, reason, replacedByJTI), nil
}

func (m *memStore) RotateRefreshToken(_ context.Context, oldJTI string, next *domain.RefreshToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jti := next.JTI
	if !m.revokeLocked(oldJTI, authconstant.RevokedReasonRotation, &jti) {
		return false, nil
	}
	m.storeLocked(next)
	return true, nil
}

func (m *memStore) RevokeAllRefreshTokensByUserID(_ context.Context, userID, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, rt := range m.tokens {
		if rt.UserID == userID && m.revokeLocked(jti, reason, nil) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) PruneOldestRefreshTokens(_ context.Context, userID string, keep int, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.activeLocked(userID, now)
	if len(active) <= keep {
		return 0, nil
	}
	for _, rt := range active[keep:] {
		delete(m.tokens, rt.JTI)
	}
	return int64(len(active) - keep), nil
}

func (m *memStore) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, rt := range m.tokens {
		if rt.ExpiresAt.Before(now) {
			delete(m.tokens, jti)
			n++
		}
	}
	return n, nil
}

func (m *memStore) token(jti string) *domain.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.tokens[jti]; ok {
		return copyToken(rt)
	}
	return nil
}

func (m *memStore) GetOrganizationByID(_ context.Context, id string) (*domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orgs[id]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}

// outbox captures notifications so tests can pick up minted tokens.
type outbox struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
	locked       map[string]time.Time
	changed      []string
}

func newOutbox() *outbox {
	return &outbox{
		verification: map[string]string{},
		reset:        map[string]string{},
		locked:       map[string]time.Time{},
	}
}

func (o *outbox) SendVerification(_ context.Context, email, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verification[email] = token
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, email, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[email] = token
	return nil
}

func (o *outbox) SendAccountLocked(_ context.Context, email string, lockedUntil time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.locked[email] = lockedUntil
	return nil
}

func (o *outbox) SendPasswordChanged(_ context.Context, email string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changed = append(o.changed, email)
	return nil
}
