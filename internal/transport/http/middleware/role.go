package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole admits only requests whose token role is one of roles. It must
// run after Auth; a request without claims is treated as unauthenticated.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				slog.WarnContext(r.Context(), "role denied", "user_id", claims.UserID, "role", claims.Role, "path", r.URL.Path)
				writeJSONError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
