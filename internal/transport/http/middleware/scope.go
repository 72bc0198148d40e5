package middleware

import (
	"net/http"
	"strings"
)

// RequireScope allows the request only when the token's space-separated scope
// list contains one of allowed. It must run after Auth.
func RequireScope(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, have := range strings.Fields(claims.Scope) {
				for _, want := range allowed {
					if have == want {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
