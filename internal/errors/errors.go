package errors

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error is the tagged error returned by the auth engine. Message is safe to
// show to callers; Fields is only set for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is matches errors with the same kind and message; Fields are ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation builds a validation error carrying per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf reports the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrInvalidCredentials   = New(KindUnauthorized, "Invalid credentials")
	ErrAccountLocked        = New(KindUnauthorized, "Account temporarily locked. Please try again later or contact support.")
	ErrEmailNotVerified     = New(KindUnauthorized, "Email not verified. Please check your inbox.")
	ErrInvalidRefreshToken  = New(KindUnauthorized, "Invalid refresh token")
	ErrRefreshTokenExpired  = New(KindUnauthorized, "Refresh token expired")
	ErrTokenReuseDetected   = New(KindUnauthorized, "Token reuse detected. All sessions have been terminated.")
	ErrRefreshTokenMissing  = New(KindUnauthorized, "Refresh token not provided")
	ErrAuthenticationNeeded = New(KindUnauthorized, "Authentication required")
	ErrInvalidAccessToken   = New(KindUnauthorized, "Invalid or expired access token")

	ErrInvalidOrExpiredToken = New(KindBadRequest, "Invalid or expired token")

	ErrEmailAlreadyInUse = New(KindConflict, "Unable to complete signup. Please contact support if the issue persists.")

	ErrOrganizationNotFound = New(KindNotFound, "Organization not found")
	ErrUserNotFound         = New(KindNotFound, "User not found")

	ErrInsufficientPermissions = New(KindForbidden, "Insufficient permissions")

	ErrTooManyRequests = New(KindTooManyRequests, "Too many requests. Please try again later.")
)
