package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventChallengeIssued      = "challenge_issued"
	auditEventSecondFactorSuccess  = "second_factor_success"
	auditEventSecondFactorFailure  = "second_factor_failure"
	auditEventSecondFactorExceeded = "second_factor_attempts_exceeded"
	auditEventRecoveryStarted      = "recovery_started"
	auditEventRecoveryOTPSuccess   = "recovery_otp_success"
	auditEventRecoveryOTPFailure   = "recovery_otp_failure"
	auditEventRecoveryOTPExceeded  = "recovery_otp_attempts_exceeded"
	auditEventResetSuccess         = "password_reset_success"
	auditEventResetFailure         = "password_reset_failure"
	auditEventResetTokenReuse      = "password_reset_token_reuse"
	auditEventAccessRejected       = "access_rejected"
)

type auditErrCode string

const (
	auditErrInvalidCredentials auditErrCode = "invalid_credentials"
	auditErrThrottled          auditErrCode = "throttled"
	auditErrChallengeNotFound  auditErrCode = "challenge_not_found"
	auditErrChallengeExpired   auditErrCode = "challenge_expired"
	auditErrAttemptsExceeded   auditErrCode = "attempts_exceeded"
	auditErrCodeInvalid        auditErrCode = "code_invalid"
	auditErrTokenInvalid       auditErrCode = "token_invalid"
	auditErrTokenReused        auditErrCode = "token_reused"
	auditErrPasswordPolicy     auditErrCode = "password_policy"
	auditErrValidation         auditErrCode = "validation"
	auditErrUnavailable        auditErrCode = "backend_unavailable"
	auditErrInternal           auditErrCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	challengeID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		UserID:      userID,
		ChallengeID: challengeID,
		RequestID:   requestIDFromContext(ctx),
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) auditErrCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrThrottled
	case errors.Is(err, ErrChallengeNotFound):
		return auditErrChallengeNotFound
	case errors.Is(err, ErrChallengeExpired):
		return auditErrChallengeExpired
	case errors.Is(err, ErrChallengeAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrChallengeCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrTokenReused):
		return auditErrTokenReused
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
