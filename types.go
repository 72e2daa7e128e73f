package authcore

import (
	"context"
	"io"
	"time"

	"github.com/docuvault/authcore/claims"
	internalaudit "github.com/docuvault/authcore/internal/audit"
)

// AccountStatus represents the lifecycle state of a credential record.
type AccountStatus uint8

const (
	// AccountActive allows authentication.
	AccountActive AccountStatus = iota
	// AccountLocked blocks authentication until the account is unlocked.
	AccountLocked
	// AccountDisabled blocks authentication permanently.
	AccountDisabled
)

// ChallengeKind distinguishes the two challenge purposes. A challenge issued
// for one purpose never verifies under the other.
type ChallengeKind uint8

const (
	// ChallengeSecondFactor is a login second-factor challenge.
	ChallengeSecondFactor ChallengeKind = iota + 1
	// ChallengeRecovery is a password-recovery OTP challenge.
	ChallengeRecovery
)

// UserRecord is the credential record returned by [CredentialProvider].
// It is read-only to this core except for the password hash.
type UserRecord struct {
	UserID       string
	Identifier   string
	Alias        string
	PasswordHash string
	Roles        []string
	Status       AccountStatus
	// SecondFactor marks accounts whose policy requires an OTP step after
	// the password check.
	SecondFactor bool
	// Destination is the out-of-band address (email, phone) codes are
	// delivered to. Opaque to the engine; interpreted by the Notifier.
	Destination string
}

// CredentialProvider is the credential-store gateway callers must implement.
// All methods are single-shot; the engine bounds them with the configured
// dependency timeout and maps failures to [ErrBackendUnavailable].
type CredentialProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// Notifier delivers a raw one-time code to a user out-of-band. The engine
// never persists the raw code; the notifier is its only reader.
type Notifier interface {
	DeliverCode(ctx context.Context, user UserRecord, code string, kind ChallengeKind) error
}

// LoginResult is returned by [Engine.ValidateLogin] and
// [Engine.VerifySecondFactor].
type LoginResult struct {
	RequiresSecondFactor bool
	// ChallengeID and PendingToken are set only when a second factor is
	// required. The pending token is scoped to the challenge and carries no
	// authorization claims.
	ChallengeID  string
	PendingToken string
	// AccessToken is set when authentication completed.
	AccessToken string
}

// ChallengeInfo describes an issued challenge.
type ChallengeInfo struct {
	ChallengeID string
	ExpiresAt   time.Time
}

// AuthResult is returned by [Engine.ValidateAccess]. Claims is the typed
// claim set business endpoints query through the claims package.
type AuthResult struct {
	UserID string
	Alias  string
	Roles  []string
	Claims claims.Set
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
