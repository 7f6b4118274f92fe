package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"commerce-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// TenantHeader carries the caller's tenant identifier
const TenantHeader = "X-Tenant-ID"

const maxTenantIDLength = 128

// publicPrefixes are served without a tenant. Webhooks resolve their tenant
// from the store they are addressed to.
var publicPrefixes = []string{"/swagger/", "/webhooks/"}

var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// TenantMiddleware puts the request's tenant into the context. Requests
// without the header run as defaultTenantID.
func TenantMiddleware(defaultTenantID string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
			if tenantID == "" {
				tenantID = defaultTenantID
			}
			if tenantID == "" || len(tenantID) > maxTenantIDLength {
				logger.Warn().
					Str("path", r.URL.Path).
					Int("length", len(tenantID)).
					Msg("Rejected request with invalid tenant id")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error": TenantHeader + " header is invalid",
				})
				return
			}

			ctx := domain.WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
