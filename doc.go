// Package authcore implements the authentication and credential-recovery
// core of the DocuVault document-management platform.
//
// The package exposes an [Engine], built through a fluent [Builder], that
// drives three stateful flows on top of Redis-backed short-lived stores:
//
//   - login: credential validation, optional second-factor challenge, and
//     access-token issuance ([Engine.ValidateLogin], [Engine.VerifySecondFactor]),
//   - recovery: OTP request, OTP verification, and single-use password reset
//     ([Engine.RecoveryStart], [Engine.RecoveryVerifyOTP],
//     [Engine.RecoveryResetPassword]),
//   - authorization: purpose-tagged token validation and typed claim
//     extraction ([Engine.ValidateAccess] and the claims package).
//
// Transport is the caller's concern. The engine never binds an HTTP server;
// controllers call the operations above and map the returned sentinel errors
// to wire payloads (the response package provides the platform's envelope).
//
// Challenge verification and reset-token redemption are linearizable per
// key: concurrent attempts against the same challenge or reset token
// serialize through Redis optimistic transactions and SETNX registration, so
// at most one of them can ever succeed.
package authcore
