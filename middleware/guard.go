package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docuvault/authcore"
	"github.com/docuvault/authcore/response"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the identity attached by [Guard].
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// Guard returns middleware that admits only requests carrying a valid
// bearer access token. The validated identity travels on the request
// context, both as an [authcore.AuthResult] and as the claim set the
// claims package accessors read.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, authcore.ErrTokenInvalid)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, authcore.ErrTokenInvalid)
				return
			}

			ctx, res, err := engine.Authorize(r.Context(), token)
			if err != nil {
				reject(w, err)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, err error) {
	writeJSON(w, response.HTTPStatus(err), response.Failure(err))
}

func writeJSON(w http.ResponseWriter, status int, resp response.AppResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
