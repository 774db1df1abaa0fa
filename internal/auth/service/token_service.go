package service

//go:generate mockgen -destination=../../mocks/mock_token_signer.go -package=mocks github.com/AnthoniusHendriyanto/auth-core/internal/auth/service TokenSigner,PasswordHasher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenSigner signs and parses compact tokens.
//
// Verify checks signature, expiry and issuer. Decode checks the signature
// only, so a caller can read the jti of an expired refresh token and decide
// what to do with the stored record itself.
type TokenSigner interface {
	Sign(claims *TokenClaims, ttl time.Duration) (string, error)
	Verify(tokenString string) (*TokenClaims, error)
	Decode(tokenString string) (*TokenClaims, error)
}

// TokenClaims covers all three token kinds. Access and action tokens carry
// the user claims and a Type; refresh tokens carry only the registered ID (jti).
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID         string   `json:"user_id,omitempty"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	OrganizationID *string  `json:"organization_id,omitempty"`
	Type           string   `json:"type,omitempty"`
}

type TokenService struct {
	secret []byte
	issuer string

	// TimeFunc overrides time.Now for signing and validation.
	TimeFunc func() time.Time
}

func NewTokenService(secret, issuer string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

func (ts *TokenService) now() time.Time {
	if ts.TimeFunc != nil {
		return ts.TimeFunc()
	}
	return time.Now()
}

func (ts *TokenService) Sign(claims *TokenClaims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("sign token: nil claims")
	}

	now := ts.now()
	c := *claims
	c.Issuer = ts.issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (ts *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}
	return ts.parse(tokenString, opts...)
}

func (ts *TokenService) Decode(tokenString string) (*TokenClaims, error) {
	return ts.parse(tokenString,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
}

func (ts *TokenService) parse(tokenString string, opts ...jwt.ParserOption) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the hex HMAC-SHA256 of a raw refresh token. Only this
// value is persisted.
func HashToken(raw string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func tokenHashEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
