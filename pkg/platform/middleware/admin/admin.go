// Package admin guards operator routes with a shared secret header.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"vatgate/pkg/platform/httputil"
	"vatgate/pkg/platform/middleware/request"
	"vatgate/pkg/requestcontext"
)

// HeaderAdminToken carries the operator secret on admin routes.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken admits only requests presenting expectedToken. With an
// empty expectedToken every request is refused, so an unconfigured deployment
// exposes no admin surface.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expectedToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) > 0 && subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderAdminToken)), want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin request refused",
				"path", r.URL.Path,
				"client_ip", request.ClientIP(r),
				"admin_enabled", len(want) > 0,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
				Error:            "unauthorized",
				ErrorDescription: "admin token required",
			})
		})
	}
}
