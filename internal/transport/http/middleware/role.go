package middleware

import (
	"net/http"
	"slices"
)

// RequireRole returns middleware that admits only callers whose token role is
// one of allowedRoles (e.g. domain.RoleService for event ingestion).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(allowedRoles, claims.Role) {
				writeJSONError(w, r, http.StatusForbidden, "role "+claims.Role+" may not access this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
