package authcore

import (
	"context"
	"errors"

	"github.com/docuvault/authcore/internal/audit"
	"github.com/docuvault/authcore/internal/limiters"
	"github.com/docuvault/authcore/internal/stores"
	"github.com/docuvault/authcore/password"
	"github.com/docuvault/authcore/token"
)

// Engine drives the login, recovery, and authorization flows. Build one
// through [New]; it is immutable and safe for concurrent use.
type Engine struct {
	config       Config
	challenges   *stores.ChallengeStore
	consumed     *stores.ConsumedTokenRegistry
	loginLimiter *limiters.LoginLimiter
	tokens       *token.Manager
	passwordHash *password.Argon2
	policy       password.Policy
	users        CredentialProvider
	notifier     Notifier
	audit        *audit.Dispatcher
	metrics      *Metrics
}

// Close drains and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// depCtx bounds a call into an external dependency.
func (e *Engine) depCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.config.Dependency.Timeout)
}

// depErr folds dependency failures, including deadline hits from depCtx,
// into ErrBackendUnavailable.
func depErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrBackendUnavailable
	}
	if errors.Is(err, stores.ErrChallengeBackend) ||
		errors.Is(err, stores.ErrConsumedBackend) ||
		errors.Is(err, limiters.ErrLoginLimiterUnavailable) {
		return ErrBackendUnavailable
	}
	return err
}

// getUserByIdentifier wraps the credential provider lookup with the
// dependency timeout.
func (e *Engine) getUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error) {
	depctx, cancel := e.depCtx(ctx)
	defer cancel()

	user, err := e.users.GetUserByIdentifier(depctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, ErrBackendUnavailable
	}
	return user, nil
}

func (e *Engine) getUserByID(ctx context.Context, userID string) (UserRecord, error) {
	depctx, cancel := e.depCtx(ctx)
	defer cancel()

	user, err := e.users.GetUserByID(depctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, ErrBackendUnavailable
	}
	return user, nil
}

func (e *Engine) deliverCode(ctx context.Context, user UserRecord, code string, kind ChallengeKind) error {
	depctx, cancel := e.depCtx(ctx)
	defer cancel()

	if err := e.notifier.DeliverCode(depctx, user, code, kind); err != nil {
		return ErrBackendUnavailable
	}
	return nil
}
