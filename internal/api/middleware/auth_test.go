package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/domain"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestAPIKeyAuth_ValidKey_Header(t *testing.T) {
	apiKey := "test-api-key"
	handler := APIKeyAuth(apiKey)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/report/cron", nil)
	req.Header.Set("X-API-Key", apiKey)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "success" {
		t.Errorf("body = %q, want %q", w.Body.String(), "success")
	}
}

func TestAPIKeyAuth_ValidKey_BearerToken(t *testing.T) {
	apiKey := "test-api-key"
	handler := APIKeyAuth(apiKey)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/report/cron", nil)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuth_ValidKey_QueryParam(t *testing.T) {
	handler := APIKeyAuth("test-api-key")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/report/cron?key=test-api-key", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPIKeyAuth_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		header string
	}{
		{"missing key", "secret", ""},
		{"wrong key", "secret", "nope"},
		{"unconfigured secret", "", "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth(tt.apiKey)(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/report/cron", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := errorBody(t, w); got != "Unauthorized." {
				t.Errorf("error = %q, want %q", got, "Unauthorized.")
			}
		})
	}
}

type mockVerifier struct {
	users map[string]*domain.User
}

func (m *mockVerifier) User(ctx context.Context, accessToken string) (*domain.User, error) {
	if u, ok := m.users[accessToken]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockVerifier) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return nil, domain.ErrUnauthorized
}

type mockUserStore struct {
	upserted []*domain.User
	err      error
}

func (m *mockUserStore) Upsert(ctx context.Context, user *domain.User) error {
	m.upserted = append(m.upserted, user)
	return m.err
}

func TestUserAuth(t *testing.T) {
	verifier := &mockVerifier{users: map[string]*domain.User{
		"good": {ID: "user-1", Email: "a@example.com"},
	}}

	tests := []struct {
		name      string
		header    string
		wantCode  int
		wantError string
	}{
		{"missing header", "", http.StatusUnauthorized, "Missing auth token."},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Missing auth token."},
		{"bad token", "Bearer bad", http.StatusUnauthorized, "Unauthorized."},
		{"valid token", "Bearer good", http.StatusOK, ""},
		{"lowercase scheme", "bearer good", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockUserStore{}
			var seen *domain.User
			handler := UserAuth(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = auth.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/clips", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantError != "" {
				if got := errorBody(t, w); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			if seen == nil || seen.ID != "user-1" {
				t.Errorf("context user = %+v, want user-1", seen)
			}
			if len(users.upserted) != 1 || users.upserted[0].Email != "a@example.com" {
				t.Errorf("upserted = %+v, want the verified user", users.upserted)
			}
		})
	}
}

func TestUserAuth_UpsertFailureStillServes(t *testing.T) {
	verifier := &mockVerifier{users: map[string]*domain.User{"good": {ID: "user-1"}}}
	handler := UserAuth(verifier, &mockUserStore{err: errors.New("db down")})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/clips", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

type mockTokens struct {
	err error
}

func (m *mockTokens) Authenticate(ctx context.Context, raw string) (*domain.APIToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	if raw != "tok" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.APIToken{ID: "t1", UserID: "user-9"}, nil
}

func TestIntakeTokenAuth(t *testing.T) {
	tests := []struct {
		name      string
		tokens    *mockTokens
		header    string
		wantCode  int
		wantError string
	}{
		{"missing", &mockTokens{}, "", http.StatusUnauthorized, "Missing token."},
		{"unknown", &mockTokens{}, "Bearer other", http.StatusUnauthorized, "Invalid token."},
		{"lookup error", &mockTokens{err: errors.New("db down")}, "Bearer tok", http.StatusUnauthorized, "Invalid token."},
		{"valid", &mockTokens{}, "Bearer tok", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *domain.User
			handler := IntakeTokenAuth(tt.tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = auth.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/intake/youtube", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantError != "" {
				if got := errorBody(t, w); got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
				return
			}
			if seen == nil || seen.ID != "user-9" {
				t.Errorf("context user = %+v, want user-9", seen)
			}
		})
	}
}
