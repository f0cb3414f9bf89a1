package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/jury-engine/internal/models"
)

// UserStore resolves API keys to users
type UserStore interface {
	GetUserByApiKey(ctx context.Context, apiKey string) (*models.User, error)
	UpdateUserLastUsed(ctx context.Context, apiKey string) error
}

// AuthMiddleware handles API key authentication
type AuthMiddleware struct {
	users UserStore
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(users UserStore) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// Authenticate verifies the API key from the Authorization header
// ("Bearer <key>" or the bare key) or the X-API-Key header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "provide Authorization header with Bearer token or X-API-Key header")
			return
		}

		user, err := m.users.GetUserByApiKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to lookup user", "error", err, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		if user == nil {
			slog.Warn("invalid api key attempt", "key_prefix", maskKey(apiKey), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "unauthorized", "the provided api key is not valid")
			return
		}

		// Don't block the request on the bookkeeping write
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.users.UpdateUserLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update user last_used_at", "error", err, "username", user.Username)
			}
		}()

		slog.Debug("authenticated request", "username", user.Username, "key_prefix", user.MaskedApiKey())

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireOrganizer rejects users without organizer rights
func (m *AuthMiddleware) RequireOrganizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		if !user.IsOrganizer {
			slog.Warn("organizer access denied", "username", user.Username, "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "forbidden", "organizer rights required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}

	return r.Header.Get("X-API-Key")
}

// maskKey returns first 8 chars of key for safe logging
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
