// Package claims carries a validated identity's claim set through a
// request context and lets business code demand individual claims with
// type checking.
//
// The Engine validates an access token, builds a [Set], and attaches it
// with [NewContext]. Downstream code calls [Get] to retrieve a claim; a
// missing or wrongly typed claim yields a structured [Rejection] rather
// than a panic or a silent zero value.
package claims

import "context"

// Well-known claim names populated by the engine.
const (
	UserID = "uid"
	Alias  = "alias"
	Roles  = "roles"
)

// Set is a validated claim set. Values are whatever the engine put in;
// [Get] enforces types at read time.
type Set map[string]any

type contextKey struct{}

// NewContext attaches a claim set to ctx.
func NewContext(ctx context.Context, set Set) context.Context {
	return context.WithValue(ctx, contextKey{}, set)
}

// FromContext extracts the claim set attached by [NewContext].
func FromContext(ctx context.Context) (Set, bool) {
	if ctx == nil {
		return nil, false
	}
	set, ok := ctx.Value(contextKey{}).(Set)
	return set, ok
}

// Rejection describes why a claim demand failed. Field names the claim
// that was missing or malformed.
type Rejection struct {
	Type    string `json:"type"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

const (
	// RejectionUnauthenticated means no claim set was attached at all.
	RejectionUnauthenticated = "unauthenticated"
	// RejectionMissing means the claim set lacks the demanded claim.
	RejectionMissing = "claim_missing"
	// RejectionType means the claim exists but has the wrong type.
	RejectionType = "claim_type"
)

// Result is the outcome of a claim demand.
type Result[T any] struct {
	OK        bool
	Value     T
	Rejection *Rejection
}

// Get demands a claim of type T from the set attached to ctx.
func Get[T any](ctx context.Context, name string) Result[T] {
	set, ok := FromContext(ctx)
	if !ok {
		return Result[T]{Rejection: &Rejection{
			Type:    RejectionUnauthenticated,
			Field:   name,
			Message: "no authenticated identity in context",
		}}
	}

	raw, ok := set[name]
	if !ok {
		return Result[T]{Rejection: &Rejection{
			Type:    RejectionMissing,
			Field:   name,
			Message: "required claim is not present",
		}}
	}

	value, ok := raw.(T)
	if !ok {
		return Result[T]{Rejection: &Rejection{
			Type:    RejectionType,
			Field:   name,
			Message: "claim has an unexpected type",
		}}
	}

	return Result[T]{OK: true, Value: value}
}

// HasRole reports whether the claim set grants the given role.
func HasRole(ctx context.Context, role string) bool {
	roles := Get[[]string](ctx, Roles)
	if !roles.OK {
		return false
	}
	for _, r := range roles.Value {
		if r == role {
			return true
		}
	}
	return false
}
