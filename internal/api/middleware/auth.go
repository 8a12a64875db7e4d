package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/google/uuid"
)

type contextKey string

const (
	tenantContextKey contextKey = "tenant"
	userContextKey   contextKey = "user"

	// UserIDHeader carries the end user a persona is talking to. Session
	// verification happens upstream of this service.
	UserIDHeader = "X-User-ID"
)

func TenantFromContext(ctx context.Context) *domain.Tenant {
	t, _ := ctx.Value(tenantContextKey).(*domain.Tenant)
	return t
}

// CallerFromContext returns the authenticated tenant and end user. ok is
// false when either is missing.
func CallerFromContext(ctx context.Context) (domain.Caller, bool) {
	tenant := TenantFromContext(ctx)
	userID, _ := ctx.Value(userContextKey).(uuid.UUID)
	if tenant == nil || userID == uuid.Nil {
		return domain.Caller{}, false
	}
	return domain.Caller{TenantID: tenant.ID, UserID: userID}, true
}

func APIKeyAuth(tenantStore domain.TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			apiKey := parts[1]
			hash := hashAPIKey(apiKey)

			tenant, err := tenantStore.GetByAPIKeyHash(r.Context(), hash)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			noteCaller(r.Context(), tenant.ID.String(), "")
			ctx := context.WithValue(r.Context(), tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIdentity requires a valid X-User-ID header and stores it in context.
func UserIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			writeError(w, http.StatusBadRequest, "invalid X-User-ID header")
			return
		}
		noteCaller(r.Context(), "", userID.String())
		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// HashAPIKey is exported for use when creating tenants.
func HashAPIKey(key string) string {
	return hashAPIKey(key)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
