package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/docuvault/authcore/internal"
	"github.com/docuvault/authcore/internal/stores"
)

// VerifySecondFactor closes a login second-factor challenge with the
// delivered code and issues the access token on success.
//
// Each call burns one attempt, serialized against concurrent calls on
// the same challenge. Once the attempt budget is exhausted the challenge
// is dead; even the correct code then fails with
// ErrChallengeAttemptsExceeded.
func (e *Engine) VerifySecondFactor(ctx context.Context, challengeID, code string) (*LoginResult, error) {
	if e == nil || e.users == nil || e.tokens == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" || code == "" {
		return nil, ErrValidation
	}

	record, err := e.verifyChallenge(ctx, challengeID, code, ChallengeSecondFactor, e.config.SecondFactor.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, ErrChallengeAttemptsExceeded):
			e.metricInc(MetricSecondFactorExceeded)
			e.emitAudit(ctx, auditEventSecondFactorExceeded, false, "", challengeID, err, nil)
		default:
			e.metricInc(MetricSecondFactorFailure)
			e.emitAudit(ctx, auditEventSecondFactorFailure, false, "", challengeID, err, nil)
		}
		return nil, err
	}

	user, err := e.getUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != AccountActive {
		return nil, ErrInvalidCredentials
	}

	access, err := e.tokens.CreateAccess(user.UserID, user.Alias, user.Roles)
	if err != nil {
		return nil, ErrUnexpected
	}

	e.metricInc(MetricSecondFactorSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventSecondFactorSuccess, true, user.UserID, challengeID, nil, nil)

	return &LoginResult{AccessToken: access}, nil
}

// IssueChallenge opens a fresh second-factor challenge for a user,
// replacing nothing: earlier challenges stay subject to their own TTL
// and attempt budget. Intended for code re-delivery.
func (e *Engine) IssueChallenge(ctx context.Context, userID string) (*ChallengeInfo, error) {
	if e == nil || e.users == nil || e.challenges == nil || e.notifier == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrValidation
	}

	user, err := e.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != AccountActive {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(e.config.SecondFactor.ChallengeTTL)
	challengeID, err := e.openChallenge(ctx, user, ChallengeSecondFactor,
		e.config.SecondFactor.ChallengeTTL, e.config.SecondFactor.OTPDigits)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricSecondFactorIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, user.UserID, challengeID, nil, func() map[string]string {
		return map[string]string{"kind": "second_factor"}
	})

	return &ChallengeInfo{
		ChallengeID: challengeID,
		ExpiresAt:   expiresAt,
	}, nil
}

// verifyChallenge runs one attempt against the store and converts its
// errors to the engine taxonomy.
func (e *Engine) verifyChallenge(
	ctx context.Context,
	challengeID string,
	code string,
	kind ChallengeKind,
	maxAttempts int,
) (*stores.Challenge, error) {
	depctx, cancel := e.depCtx(ctx)
	defer cancel()

	record, err := e.challenges.Verify(depctx, challengeID, internal.HashCode(code), uint8(kind), maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrChallengeNotFound):
			return nil, ErrChallengeNotFound
		case errors.Is(err, stores.ErrChallengeExpired):
			return nil, ErrChallengeExpired
		case errors.Is(err, stores.ErrChallengeExceeded):
			return nil, ErrChallengeAttemptsExceeded
		case errors.Is(err, stores.ErrChallengeCodeMismatch):
			return nil, ErrChallengeCodeInvalid
		default:
			return nil, depErr(err)
		}
	}
	return record, nil
}
