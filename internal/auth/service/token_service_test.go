package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewTokenService(t *testing.T) {
	ts := NewTokenService("access-secret-key", "auth-core")

	assert.NotNil(t, ts)
	assert.Equal(t, []byte("access-secret-key"), ts.secret)
	assert.Equal(t, "auth-core", ts.issuer)
	assert.Nil(t, ts.TimeFunc)
}

func TestTokenService_SignAndVerify(t *testing.T) {
	orgID := "org-1"
	tests := []struct {
		name   string
		claims *TokenClaims
		ttl    time.Duration
	}{
		{
			name: "access token",
			claims: &TokenClaims{
				UserID:         "user-123",
				Email:          "test@example.com",
				Roles:          []string{"USER", "ADMIN"},
				OrganizationID: &orgID,
				Type:           "ACCESS",
			},
			ttl: 15 * time.Minute,
		},
		{
			name:   "action token",
			claims: &TokenClaims{UserID: "user-123", Type: "PASSWORD_RESET"},
			ttl:    time.Hour,
		},
		{
			name:   "refresh token carries only jti",
			claims: &TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}},
			ttl:    7 * 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Now().Truncate(time.Second)
			ts := NewTokenService("secret", "auth-core")
			ts.TimeFunc = fixedClock(now)

			signed, err := ts.Sign(tt.claims, tt.ttl)
			require.NoError(t, err)
			assert.NotEmpty(t, signed)

			got, err := ts.Verify(signed)
			require.NoError(t, err)
			assert.Equal(t, tt.claims.UserID, got.UserID)
			assert.Equal(t, tt.claims.Email, got.Email)
			assert.Equal(t, tt.claims.Roles, got.Roles)
			assert.Equal(t, tt.claims.OrganizationID, got.OrganizationID)
			assert.Equal(t, tt.claims.Type, got.Type)
			assert.Equal(t, tt.claims.ID, got.ID)
			assert.Equal(t, "auth-core", got.Issuer)
			assert.Equal(t, now.Add(tt.ttl).Unix(), got.ExpiresAt.Unix())
		})
	}
}

func TestTokenService_Sign_NilClaims(t *testing.T) {
	_, err := NewTokenService("secret", "").Sign(nil, time.Minute)
	assert.Error(t, err)
}

func TestTokenService_Verify_Rejects(t *testing.T) {
	now := time.Now()
	signer := NewTokenService("secret", "auth-core")
	signer.TimeFunc = fixedClock(now)

	signed, err := signer.Sign(&TokenClaims{UserID: "user-123", Type: "ACCESS"}, time.Minute)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		verifier := NewTokenService("secret", "auth-core")
		verifier.TimeFunc = fixedClock(now.Add(2 * time.Minute))

		_, err := verifier.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenService("other", "auth-core").Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewTokenService("secret", "someone-else").Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := signer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &TokenClaims{UserID: "user-123", Type: "ACCESS"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = signer.Verify(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{UserID: "user-123"}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = NewTokenService("secret", "").Verify(noExp)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_Decode(t *testing.T) {
	now := time.Now()
	ts := NewTokenService("secret", "auth-core")
	ts.TimeFunc = fixedClock(now)

	signed, err := ts.Sign(&TokenClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"}}, time.Minute)
	require.NoError(t, err)

	ts.TimeFunc = fixedClock(now.Add(time.Hour))

	_, err = ts.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := ts.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", claims.ID)

	_, err = NewTokenService("forged", "auth-core").Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashToken(t *testing.T) {
	a := HashToken("raw-token", []byte("pepper"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("raw-token", []byte("pepper")))
	assert.NotEqual(t, a, HashToken("raw-token", []byte("other")))
	assert.NotEqual(t, a, HashToken("raw-token2", []byte("pepper")))

	assert.True(t, tokenHashEqual(a, HashToken("raw-token", []byte("pepper"))))
	assert.False(t, tokenHashEqual(a, ""))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hashed, err := h.Hash("P@ss1234")
	require.NoError(t, err)
	assert.NotEqual(t, "P@ss1234", hashed)
	assert.True(t, h.Verify("P@ss1234", hashed))
	assert.False(t, h.Verify("P@ss12345", hashed))
	assert.False(t, h.Verify("P@ss1234", "not-a-hash"))

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
}
