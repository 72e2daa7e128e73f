// Package middleware exposes net/http guards that enforce the engine's
// access-token decisions at the transport edge.
//
// # Guards
//
//   - [Guard] — validates the bearer token and attaches the identity.
//   - [RequireRole] — [Guard] plus a role demand on the validated identity.
//
// Each guard reads the Authorization header, calls Engine.Authorize, and
// injects the validated claim set into the request context, so handlers
// read it back through [AuthResultFromContext] or the claims package's
// typed accessors.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It does NOT
// implement authorization logic itself — all decisions are delegated to
// Engine.Authorize, and rejections are rendered with the response
// package's uniform envelope.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to the engine).
//   - Touch Redis or the credential store (the engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the engine.
package middleware
