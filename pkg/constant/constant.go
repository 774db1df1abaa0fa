package constant

const (
	DefaultTokenType = "Bearer"
	TokenIssuer      = "auth-core"

	RefreshTokenCookie = "refreshToken"
)

// Role names stored on the user and embedded in access tokens.
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"

	DefaultUserRole = RoleUser
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess            = "ACCESS"
	TokenTypeEmailVerification = "EMAIL_VERIFICATION"
	TokenTypePasswordReset     = "PASSWORD_RESET"
)

// Reasons stored on a revoked refresh token.
const (
	RevokedReasonRotation      = "TOKEN_ROTATION"
	RevokedReasonReuseDetected = "TOKEN_REUSE_DETECTED"
	RevokedReasonLogout        = "USER_LOGOUT"
	RevokedReasonPasswordReset = "PASSWORD_RESET"
	RevokedReasonExpired       = "EXPIRED"
	RevokedReasonAdmin         = "ADMIN_REVOKED"
)

// Failure reasons recorded in the login attempt ledger.
const (
	FailureEmailNotFound    = "EMAIL_NOT_FOUND"
	FailureAccountLocked    = "ACCOUNT_LOCKED"
	FailureAccountInactive  = "ACCOUNT_INACTIVE"
	FailureEmailNotVerified = "EMAIL_NOT_VERIFIED"
	FailureInvalidPassword  = "INVALID_PASSWORD"
)

// Caller-facing messages. The generic ones must not vary with account state.
const (
	MsgSignupSuccess      = "Account created successfully. Please check your email to verify your account."
	MsgEmailVerified      = "Email verified successfully"
	MsgEmailAlreadyValid  = "Email already verified"
	MsgVerificationSent   = "If the email exists, a verification link has been sent."
	MsgPasswordResetSent  = "If the email exists, a password reset link has been sent."
	MsgPasswordResetDone  = "Password reset successfully"
	MsgLoggedOut          = "Logged out successfully"
	MsgAccountUnlocked    = "Account unlocked successfully"
	MsgSessionsTerminated = "All sessions have been terminated"
)
