package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
)

// TokenAuthenticator resolves a raw intake token.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*domain.APIToken, error)
}

// UserStore mirrors verified users.
type UserStore interface {
	Upsert(ctx context.Context, user *domain.User) error
}

// APIKeyAuth creates a middleware that validates a shared secret. It guards
// the cron endpoint; an empty apiKey rejects every request.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check X-API-Key header
			key := r.Header.Get("X-API-Key")
			if key == "" {
				// Vercel-style cron calls send the secret as a bearer token
				key = bearerToken(r)
			}
			if key == "" {
				key = r.URL.Query().Get("key")
			}

			if key == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}

			// Constant-time comparison to prevent timing attacks
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserAuth verifies the Supabase access token in the Authorization header
// and stores the user in the request context. Verified users are mirrored
// into users so scheduled reports can find their email.
func UserAuth(verifier auth.Verifier, users UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Missing auth token.")
				return
			}

			user, err := verifier.User(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					slog.Warn("user verification failed", "error", err)
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}

			if err := users.Upsert(r.Context(), user); err != nil {
				slog.Error("failed to mirror user", "user_id", user.ID, "error", err)
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// IntakeTokenAuth authenticates intake webhooks with a bearer intake token.
// The context user carries only the token owner's ID.
func IntakeTokenAuth(tokens TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "Missing token.")
				return
			}

			token, err := tokens.Authenticate(r.Context(), raw)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidToken) && !errors.Is(err, domain.ErrMissingToken) {
					slog.Error("intake token lookup failed", "error", err)
				}
				writeError(w, http.StatusUnauthorized, "Invalid token.")
				return
			}

			user := &domain.User{ID: token.UserID}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
