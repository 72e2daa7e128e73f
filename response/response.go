// Package response defines the platform's uniform API envelope and the
// mapping from engine errors to it.
//
// Every endpoint answers with the same shape regardless of outcome:
//
//	{"success": bool, "message": string, "errors": [...], "data": ...}
//
// Failure reasons that must stay indistinguishable to callers (unknown
// identifier vs. wrong secret, for example) collapse to one message and
// one status code here, so no endpoint can leak the distinction by
// accident.
package response

import (
	"errors"
	"net/http"

	"github.com/docuvault/authcore"
)

// AppError is one entry of the envelope's errors list.
type AppError struct {
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// AppResponse is the uniform envelope.
type AppResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Errors  []AppError `json:"errors,omitempty"`
	Data    any        `json:"data,omitempty"`
}

// OK builds a success envelope.
func OK(message string, data any) AppResponse {
	return AppResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Failure maps an engine error to its envelope.
func Failure(err error) AppResponse {
	var policyErr *authcore.PasswordPolicyError
	if errors.As(err, &policyErr) {
		appErrors := make([]AppError, 0, len(policyErr.Violations))
		for _, v := range policyErr.Violations {
			appErrors = append(appErrors, AppError{
				Type:    "password_policy",
				Field:   v.Rule,
				Message: v.Message,
			})
		}
		return AppResponse{
			Success: false,
			Message: "password does not meet the required policy",
			Errors:  appErrors,
		}
	}

	message, errType := describe(err)
	return AppResponse{
		Success: false,
		Message: message,
		Errors:  []AppError{{Type: errType, Message: message}},
	}
}

func describe(err error) (message, errType string) {
	switch {
	case errors.Is(err, authcore.ErrValidation):
		return "request is missing required fields", "validation"
	case errors.Is(err, authcore.ErrInvalidCredentials):
		return "invalid credentials", "invalid_credentials"
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return "too many attempts, try again later", "rate_limited"
	case errors.Is(err, authcore.ErrChallengeNotFound),
		errors.Is(err, authcore.ErrChallengeExpired):
		return "verification code is no longer valid", "challenge_invalid"
	case errors.Is(err, authcore.ErrChallengeAttemptsExceeded):
		return "too many incorrect codes, request a new one", "challenge_exceeded"
	case errors.Is(err, authcore.ErrChallengeCodeInvalid):
		return "verification code is incorrect", "challenge_code"
	case errors.Is(err, authcore.ErrTokenReused):
		return "this link has already been used", "token_reused"
	case errors.Is(err, authcore.ErrTokenInvalid):
		return "session is invalid or expired", "token_invalid"
	case errors.Is(err, authcore.ErrPasswordPolicy):
		return "password does not meet the required policy", "password_policy"
	case errors.Is(err, authcore.ErrBackendUnavailable):
		return "service temporarily unavailable", "unavailable"
	default:
		return "an unexpected error occurred", "internal"
	}
}

// HTTPStatus maps an engine error to a status code. Errors that must be
// indistinguishable share a code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, authcore.ErrValidation),
		errors.Is(err, authcore.ErrPasswordPolicy):
		return http.StatusBadRequest
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrTokenInvalid),
		errors.Is(err, authcore.ErrTokenReused):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrChallengeNotFound),
		errors.Is(err, authcore.ErrChallengeExpired),
		errors.Is(err, authcore.ErrChallengeCodeInvalid),
		errors.Is(err, authcore.ErrChallengeAttemptsExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, authcore.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, authcore.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
