package middleware

import (
	"net/http"

	"github.com/docuvault/authcore"
	"github.com/docuvault/authcore/claims"
	"github.com/docuvault/authcore/response"
)

// RequireRole returns [Guard] tightened with a role demand: the validated
// identity must also carry the given role.
func RequireRole(engine *authcore.Engine, role string) func(http.Handler) http.Handler {
	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !claims.HasRole(r.Context(), role) {
				writeJSON(w, http.StatusForbidden, response.AppResponse{
					Success: false,
					Message: "insufficient privileges",
					Errors: []response.AppError{{
						Type:    "forbidden",
						Message: "insufficient privileges",
					}},
				})
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
