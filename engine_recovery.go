package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/docuvault/authcore/internal"
	"github.com/docuvault/authcore/password"
)

// PasswordPolicyError carries the individual policy rules a candidate
// password failed. It matches ErrPasswordPolicy under errors.Is.
type PasswordPolicyError struct {
	Violations []password.Violation
}

func (e *PasswordPolicyError) Error() string {
	return ErrPasswordPolicy.Error()
}

func (e *PasswordPolicyError) Unwrap() error {
	return ErrPasswordPolicy
}

// RecoveryStart opens a password-recovery challenge for the identifier
// and delivers its OTP out-of-band.
//
// Unknown, locked, and disabled identifiers receive the same answer as
// valid ones: a challenge handle with a normal expiry. The handle is
// real but backed by nothing, so any verification against it fails the
// same way a mistyped code does. Callers cannot tell the cases apart.
func (e *Engine) RecoveryStart(ctx context.Context, identifier string) (*ChallengeInfo, error) {
	if e == nil || e.users == nil || e.challenges == nil || e.notifier == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" {
		return nil, ErrValidation
	}

	expiresAt := time.Now().Add(e.config.Recovery.ChallengeTTL)

	user, err := e.getUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.recoveryDecoy(ctx, identifier, expiresAt, "user_not_found")
		}
		return nil, err
	}
	if user.Status != AccountActive {
		reason := "account_locked"
		if user.Status == AccountDisabled {
			reason = "account_disabled"
		}
		return e.recoveryDecoy(ctx, identifier, expiresAt, reason)
	}

	challengeID, err := e.openChallenge(ctx, user, ChallengeRecovery,
		e.config.Recovery.ChallengeTTL, e.config.Recovery.OTPDigits)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRecoveryStarted)
	e.emitAudit(ctx, auditEventRecoveryStarted, true, user.UserID, challengeID, nil, nil)

	return &ChallengeInfo{
		ChallengeID: challengeID,
		ExpiresAt:   expiresAt,
	}, nil
}

// recoveryDecoy fabricates an unstored challenge handle so the response
// shape never reveals whether the identifier exists.
func (e *Engine) recoveryDecoy(ctx context.Context, identifier string, expiresAt time.Time, reason string) (*ChallengeInfo, error) {
	cid, err := internal.NewChallengeID()
	if err != nil {
		return nil, ErrUnexpected
	}

	e.metricInc(MetricRecoveryStarted)
	e.emitAudit(ctx, auditEventRecoveryStarted, false, "", cid.String(), nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})

	return &ChallengeInfo{
		ChallengeID: cid.String(),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoveryVerifyOTP closes a recovery challenge with the delivered OTP
// and returns a single-use reset token. The same attempt accounting as
// the login second factor applies.
func (e *Engine) RecoveryVerifyOTP(ctx context.Context, challengeID, code string) (string, error) {
	if e == nil || e.users == nil || e.tokens == nil || e.challenges == nil {
		return "", ErrEngineNotReady
	}
	if challengeID == "" || code == "" {
		return "", ErrValidation
	}

	record, err := e.verifyChallenge(ctx, challengeID, code, ChallengeRecovery, e.config.Recovery.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, ErrChallengeAttemptsExceeded):
			e.metricInc(MetricRecoveryOTPExceeded)
			e.emitAudit(ctx, auditEventRecoveryOTPExceeded, false, "", challengeID, err, nil)
		default:
			e.metricInc(MetricRecoveryOTPFailure)
			e.emitAudit(ctx, auditEventRecoveryOTPFailure, false, "", challengeID, err, nil)
		}
		return "", err
	}

	resetToken, _, _, err := e.tokens.CreateReset(record.UserID, challengeID)
	if err != nil {
		return "", ErrUnexpected
	}

	e.metricInc(MetricRecoveryOTPSuccess)
	e.emitAudit(ctx, auditEventRecoveryOTPSuccess, true, record.UserID, challengeID, nil, nil)

	return resetToken, nil
}

// RecoveryResetPassword redeems a reset token and installs a new secret.
//
// The token is spent only after the new secret has passed the acceptance
// policy, so a rejected candidate leaves the token valid and the caller
// may retry. Redeeming a token twice fails with ErrTokenReused no matter
// how the calls interleave.
func (e *Engine) RecoveryResetPassword(ctx context.Context, resetToken, newSecret string) error {
	if e == nil || e.users == nil || e.tokens == nil || e.consumed == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if resetToken == "" || newSecret == "" {
		return ErrValidation
	}

	claims, err := e.tokens.ParseReset(resetToken)
	if err != nil {
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetFailure, false, "", "", ErrTokenInvalid, nil)
		return ErrTokenInvalid
	}

	// read-only replay probe so a spent token reports reuse ahead of any
	// complaint about the new secret; the Consume below stays the gate
	depctx, cancel := e.depCtx(ctx)
	spent, err := e.consumed.Spent(depctx, claims.ID)
	cancel()
	if err != nil {
		return depErr(err)
	}
	if spent {
		e.metricInc(MetricResetTokenReuse)
		e.emitAudit(ctx, auditEventResetTokenReuse, false, claims.UID, claims.ChallengeID, ErrTokenReused, nil)
		return ErrTokenReused
	}

	if violations := e.policy.Check(newSecret); len(violations) > 0 {
		policyErr := &PasswordPolicyError{Violations: violations}
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetFailure, false, claims.UID, claims.ChallengeID, policyErr, nil)
		return policyErr
	}

	user, err := e.getUserByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	if e.config.Password.ForbidRepeated {
		same, err := e.passwordHash.Verify(newSecret, user.PasswordHash)
		if err == nil && same {
			policyErr := &PasswordPolicyError{Violations: []password.Violation{{
				Rule:    "forbid_repeated",
				Message: "new password must differ from the current one",
			}}}
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventResetFailure, false, claims.UID, claims.ChallengeID, policyErr, nil)
			return policyErr
		}
	}

	// the registry mark must outlive the token's own validity window
	registryTTL := time.Until(claims.ExpiresAt.Time) + e.config.Token.Leeway + time.Minute
	if registryTTL <= 0 {
		return ErrTokenInvalid
	}

	depctx, cancel = e.depCtx(ctx)
	claimed, err := e.consumed.Consume(depctx, claims.ID, registryTTL)
	cancel()
	if err != nil {
		return depErr(err)
	}
	if !claimed {
		e.metricInc(MetricResetTokenReuse)
		e.emitAudit(ctx, auditEventResetTokenReuse, false, claims.UID, claims.ChallengeID, ErrTokenReused, nil)
		return ErrTokenReused
	}

	newHash, err := e.passwordHash.Hash(newSecret)
	if err != nil {
		e.releaseResetToken(ctx, claims.ID)
		return ErrUnexpected
	}

	depctx, cancel = e.depCtx(ctx)
	err = e.users.UpdatePasswordHash(depctx, user.UserID, newHash)
	cancel()
	if err != nil {
		// give the token back so the caller can retry once the
		// credential store recovers
		e.releaseResetToken(ctx, claims.ID)
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetFailure, false, user.UserID, claims.ChallengeID, ErrBackendUnavailable, nil)
		return ErrBackendUnavailable
	}

	e.metricInc(MetricResetSuccess)
	e.emitAudit(ctx, auditEventResetSuccess, true, user.UserID, claims.ChallengeID, nil, nil)

	return nil
}

func (e *Engine) releaseResetToken(ctx context.Context, tokenID string) {
	depctx, cancel := e.depCtx(ctx)
	defer cancel()
	_ = e.consumed.Release(depctx, tokenID)
}
