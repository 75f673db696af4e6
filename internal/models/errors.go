package models

import "errors"

// Sentinel errors for common failure conditions. The message text is the
// caller-facing contract: clients branch on it to drive UI, not just on the
// HTTP status.
var (
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrNotAuthenticated   = errors.New("User not authenticated")
	ErrNoToken            = errors.New("No token provided")
	ErrInvalidSession     = errors.New("Invalid session")
	ErrAuthHeaderRequired = errors.New("Authorization header required")

	// Session bridge consumption
	ErrInvalidTokenID = errors.New("Invalid token ID")
	ErrTokenExpired   = errors.New("Token expired")
	ErrInvalidOTP     = errors.New("Invalid OTP")
	ErrUnknownOTPType = errors.New("Unknown OTP type")

	// Two-factor workflow
	ErrSetupExpired         = errors.New("Authenticator setup expired. Please start over.")
	ErrDisableNotAllowed    = errors.New("You cannot disable 2FA right now. Please validate your OTP first.")
	ErrDisableWindowExpired = errors.New("2FA disable window has expired. Please validate your OTP again.")
	ErrChallengeExpired     = errors.New("Challenge expired. Please request a new one.")

	// OAuth relay
	ErrInvalidProvider   = errors.New("Invalid provider")
	ErrOAuthStateInvalid = errors.New("Invalid or expired OAuth session")
	ErrOAuthStateExpired = errors.New("OAuth session expired. Please start over.")
	ErrProviderMismatch  = errors.New("Provider mismatch")

	// Bootstrap
	ErrUsersExist = errors.New("Users already exist")

	// Server-side classes
	ErrServerConfig   = errors.New("Server configuration error")
	ErrUpstream       = errors.New("Identity store unavailable")
	ErrInternalServer = errors.New("Internal server error")
)
