package middleware

import (
	"context"
	"net/http"

	"draftdesk/internal/domain"
)

// SessionCookie is the cookie carrying the logged-in operator's id.
const SessionCookie = "admin_session"

type adminKey string

const currentAdminKey adminKey = "current_admin"

// RequireAuth resolves the session cookie against the admin store and puts
// the account on the request context. Requests without a valid session get
// a 401.
func RequireAuth(admins domain.AdminRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			admin, err := admins.GetByID(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), currentAdminKey, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSuperAdmin gates a route to super_admin accounts. It must run after
// RequireAuth.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin := AdminFromContext(r.Context())
		if admin == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if admin.Role != domain.RoleSuperAdmin {
			http.Error(w, "super admin required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminFromContext returns the authenticated operator, or nil.
func AdminFromContext(ctx context.Context) *domain.Admin {
	if admin, ok := ctx.Value(currentAdminKey).(*domain.Admin); ok {
		return admin
	}
	return nil
}
