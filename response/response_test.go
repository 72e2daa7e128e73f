package response

import (
	"errors"
	"net/http"
	"testing"

	"github.com/docuvault/authcore"
	"github.com/docuvault/authcore/password"
)

func TestOKEnvelope(t *testing.T) {
	resp := OK("logged in", map[string]string{"token": "abc"})
	if !resp.Success || resp.Message != "logged in" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Errors) != 0 {
		t.Fatalf("success envelope must carry no errors: %+v", resp.Errors)
	}
}

func TestFailureIndistinguishableCredentials(t *testing.T) {
	// all credential failures collapse to one message and one status, so
	// an endpoint cannot leak which part was wrong
	resp := Failure(authcore.ErrInvalidCredentials)
	if resp.Success {
		t.Fatal("failure envelope must not be successful")
	}
	if resp.Message != "invalid credentials" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if HTTPStatus(authcore.ErrInvalidCredentials) != http.StatusUnauthorized {
		t.Fatal("credential failures must map to 401")
	}
}

func TestFailurePolicyExpansion(t *testing.T) {
	err := &authcore.PasswordPolicyError{Violations: []password.Violation{
		{Rule: "min_length", Message: "password is too short"},
		{Rule: "require_digit", Message: "password needs a digit"},
	}}

	resp := Failure(err)
	if resp.Success {
		t.Fatal("failure envelope must not be successful")
	}
	if len(resp.Errors) != 2 {
		t.Fatalf("expected one entry per violation, got %+v", resp.Errors)
	}
	if resp.Errors[0].Field != "min_length" || resp.Errors[1].Field != "require_digit" {
		t.Fatalf("violations not mapped: %+v", resp.Errors)
	}
	if HTTPStatus(err) != http.StatusBadRequest {
		t.Fatal("policy failures must map to 400")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{authcore.ErrValidation, http.StatusBadRequest},
		{authcore.ErrPasswordPolicy, http.StatusBadRequest},
		{authcore.ErrInvalidCredentials, http.StatusUnauthorized},
		{authcore.ErrTokenInvalid, http.StatusUnauthorized},
		{authcore.ErrTokenReused, http.StatusUnauthorized},
		{authcore.ErrChallengeNotFound, http.StatusUnprocessableEntity},
		{authcore.ErrChallengeExpired, http.StatusUnprocessableEntity},
		{authcore.ErrChallengeCodeInvalid, http.StatusUnprocessableEntity},
		{authcore.ErrChallengeAttemptsExceeded, http.StatusUnprocessableEntity},
		{authcore.ErrLoginRateLimited, http.StatusTooManyRequests},
		{authcore.ErrBackendUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFailureUnknownError(t *testing.T) {
	resp := Failure(errors.New("boom"))
	if resp.Success {
		t.Fatal("failure envelope must not be successful")
	}
	if resp.Message != "an unexpected error occurred" {
		t.Fatalf("internal details must not leak: %q", resp.Message)
	}
}
