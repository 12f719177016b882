package auth

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/aksara-hq/aksara-admin/internal/platform/httpx"
	"github.com/aksara-hq/aksara-admin/internal/shared"
)

// Middleware authenticates requests via Bearer tokens and installs the
// principal in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid access token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Fail(w, http.StatusUnauthorized, "autentikasi diperlukan")
			return
		}
		claims, err := m.Service.VerifyAccess(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("token ditolak", slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusUnauthorized, "token tidak valid")
			return
		}
		principal := shared.Principal{UserID: claims.UserID, RoleID: claims.RoleID, Email: claims.Email}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
