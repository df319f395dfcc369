package server

import (
	"net/http"

	"github.com/aristath/paper-trader/internal/api"
	"github.com/aristath/paper-trader/internal/domain"
)

// RequireUser resolves the authenticated user from the X-User-ID header set
// by the upstream gateway after token validation. The core never validates
// credentials itself; a missing identity is a 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			api.Fail(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithUserID(r.Context(), userID)))
	})
}
