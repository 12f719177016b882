package rbac

import (
	"net/http"

	"log/slog"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. Decisions are
// made against the caller's role from the request principal; anything the
// engine cannot answer positively is denied.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the current role holds the permission on the feature.
func (m Middleware) Require(feature, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
				return
			}
			if !m.Service.HasPermission(r.Context(), principal.RoleID, feature, permission) {
				if m.Logger != nil {
					m.Logger.Warn("akses ditolak",
						slog.Int64("roleId", principal.RoleID),
						slog.String("feature", feature),
						slog.String("permission", permission))
				}
				httpx.Fail(w, http.StatusForbidden, "akses ditolak")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature ensures the current role holds at least one permission on
// the feature.
func (m Middleware) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
				return
			}
			if !m.Service.HasFeatureAccess(r.Context(), principal.RoleID, feature) {
				httpx.Fail(w, http.StatusForbidden, "akses ditolak")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
