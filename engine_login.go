package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/docuvault/authcore/internal"
	"github.com/docuvault/authcore/internal/stores"
)

// ValidateLogin checks an identifier/secret pair and either issues an
// access token directly or opens a second-factor challenge, depending on
// the account's policy.
//
// Unknown identifiers, wrong secrets, and locked or disabled accounts
// are indistinguishable to the caller: all of them return
// ErrInvalidCredentials. Audit events carry the real reason.
func (e *Engine) ValidateLogin(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || secret == "" {
		return nil, ErrValidation
	}

	if e.loginLimiter != nil {
		blocked, err := e.loginLimiter.Blocked(ctx, identifier)
		if err != nil {
			return nil, depErr(err)
		}
		if blocked {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return nil, ErrLoginRateLimited
		}
	}

	user, err := e.getUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.failLogin(ctx, identifier, "", "user_not_found")
		}
		return nil, err
	}

	ok, err := e.passwordHash.Verify(secret, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, identifier, user.UserID, "secret_mismatch")
	}

	if user.Status != AccountActive {
		reason := "account_locked"
		if user.Status == AccountDisabled {
			reason = "account_disabled"
		}
		return nil, e.failLogin(ctx, identifier, user.UserID, reason)
	}

	if e.loginLimiter != nil {
		if err := e.loginLimiter.Reset(ctx, identifier); err != nil {
			return nil, depErr(err)
		}
	}

	if user.SecondFactor {
		challengeID, err := e.openChallenge(ctx, user, ChallengeSecondFactor,
			e.config.SecondFactor.ChallengeTTL, e.config.SecondFactor.OTPDigits)
		if err != nil {
			return nil, err
		}

		pending, err := e.tokens.CreatePending(user.UserID, challengeID)
		if err != nil {
			return nil, ErrUnexpected
		}

		e.metricInc(MetricSecondFactorIssued)
		e.emitAudit(ctx, auditEventChallengeIssued, true, user.UserID, challengeID, nil, func() map[string]string {
			return map[string]string{"kind": "second_factor"}
		})

		return &LoginResult{
			RequiresSecondFactor: true,
			ChallengeID:          challengeID,
			PendingToken:         pending,
		}, nil
	}

	access, err := e.tokens.CreateAccess(user.UserID, user.Alias, user.Roles)
	if err != nil {
		return nil, ErrUnexpected
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, "", nil, nil)

	return &LoginResult{AccessToken: access}, nil
}

// failLogin records a failed attempt and returns the uniform credential
// error.
func (e *Engine) failLogin(ctx context.Context, identifier, userID, reason string) error {
	if e.loginLimiter != nil {
		if _, err := e.loginLimiter.RecordFailure(ctx, identifier); err != nil {
			return depErr(err)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

// openChallenge creates and persists a fresh challenge for the user and
// delivers its code out-of-band. Only the code's hash is stored.
func (e *Engine) openChallenge(
	ctx context.Context,
	user UserRecord,
	kind ChallengeKind,
	ttl time.Duration,
	digits int,
) (string, error) {
	cid, err := internal.NewChallengeID()
	if err != nil {
		return "", ErrUnexpected
	}
	code, err := internal.NewOTP(digits)
	if err != nil {
		return "", ErrUnexpected
	}

	record := &stores.Challenge{
		Kind:      uint8(kind),
		UserID:    user.UserID,
		ExpiresAt: time.Now().Add(ttl).Unix(),
		CodeHash:  internal.HashCode(code),
	}

	depctx, cancel := e.depCtx(ctx)
	err = e.challenges.Save(depctx, cid.String(), record, ttl)
	cancel()
	if err != nil {
		return "", depErr(err)
	}

	if err := e.deliverCode(ctx, user, code, kind); err != nil {
		// challenge is unusable without its code; drop it eagerly
		depctx, cancel := e.depCtx(ctx)
		_, _ = e.challenges.Delete(depctx, cid.String())
		cancel()
		return "", err
	}

	return cid.String(), nil
}
