package authcore

import (
	"context"

	"github.com/docuvault/authcore/claims"
)

// ValidateAccess validates an access token and returns the identity it
// certifies. Tokens minted for another purpose (pending second factor,
// password reset) are rejected exactly like forged ones.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if tokenStr == "" {
		return nil, ErrValidation
	}

	parsed, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricAccessRejected)
		e.emitAudit(ctx, auditEventAccessRejected, false, "", "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricAccessValidated)

	set := claims.Set{
		claims.UserID: parsed.UID,
		claims.Alias:  parsed.Alias,
		claims.Roles:  parsed.Roles,
	}

	return &AuthResult{
		UserID: parsed.UID,
		Alias:  parsed.Alias,
		Roles:  parsed.Roles,
		Claims: set,
	}, nil
}

// Authorize validates the token and returns a child context carrying the
// claim set, ready for the claims package's typed accessors.
func (e *Engine) Authorize(ctx context.Context, tokenStr string) (context.Context, *AuthResult, error) {
	result, err := e.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return ctx, nil, err
	}
	return claims.NewContext(ctx, result.Claims), result, nil
}
