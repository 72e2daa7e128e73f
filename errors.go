package authcore

import "errors"

var (
	// ErrValidation reports malformed, user-correctable input.
	ErrValidation = errors.New("invalid request input")
	// ErrInvalidCredentials is returned for any failed credential check.
	// The message is deliberately identical for unknown identifiers, wrong
	// passwords, and non-active accounts to prevent user enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when the per-identifier failure
	// counter is over its threshold.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrChallengeNotFound is returned when a challenge id is unknown.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExpired is returned when a challenge is past its TTL.
	ErrChallengeExpired = errors.New("challenge expired")
	// ErrChallengeAttemptsExceeded is returned once a challenge has burned
	// its attempt budget. The challenge is invalidated on this transition
	// and cannot be retried even with the correct code.
	ErrChallengeAttemptsExceeded = errors.New("challenge attempts exceeded")
	// ErrChallengeCodeInvalid is returned on a code mismatch while attempts
	// remain.
	ErrChallengeCodeInvalid = errors.New("invalid challenge code")
	// ErrTokenInvalid is returned when a token fails signature, expiry, or
	// purpose validation.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenReused is returned when a single-use reset token is redeemed
	// a second time.
	ErrTokenReused = errors.New("token already used")
	// ErrPasswordPolicy is returned when a new password does not satisfy
	// the configured policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrUserNotFound is the contract error CredentialProvider
	// implementations return for an unknown identifier. The engine never
	// surfaces it; login and recovery convert it to their uniform
	// responses.
	ErrUserNotFound = errors.New("user not found")
	// ErrBackendUnavailable is returned when an external dependency (store,
	// credential provider, notifier) fails or times out.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	// ErrEngineNotReady is returned when the engine is missing a required
	// collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUnexpected is the catch-all for internal failures. Callers must
	// never surface its cause beyond a generic message.
	ErrUnexpected = errors.New("unexpected internal error")
)
