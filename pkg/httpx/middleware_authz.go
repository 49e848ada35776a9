package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyRole must run after AuthnMiddleware. The caller needs at least
// one of roles.
func RequireAnyRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			if !p.HasAnyRole(roles...) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_role", role="`+strings.Join(roles, " ")+`"`)
				WriteError(w, http.StatusForbidden, "insufficient_role", "caller lacks a required role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
