package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/pkg/crypto"
)

// mockVerifier rotates refresh tokens: "rt-N" becomes "rt-N+".
type mockVerifier struct {
	refreshed []string
	err       error
}

func (m *mockVerifier) User(ctx context.Context, accessToken string) (*domain.User, error) {
	return &domain.User{ID: "user-1", Email: "a@example.com"}, nil
}

func (m *mockVerifier) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	m.refreshed = append(m.refreshed, refreshToken)
	if m.err != nil {
		return nil, m.err
	}
	return &auth.Session{
		AccessToken:  "access-" + refreshToken,
		RefreshToken: refreshToken + "+",
		ExpiresIn:    3600,
		User:         domain.User{ID: "user-1"},
	}, nil
}

func setupSessionService(t *testing.T) (*SessionService, *mockVerifier) {
	t.Helper()
	sealer, err := crypto.NewSealer("test-secret")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	verifier := &mockVerifier{}
	cfg := config.SessionConfig{
		CookieName: "vm_refresh_token",
		MaxAge:     90 * 24 * time.Hour,
		Secure:     true,
	}
	return NewSessionService(verifier, sealer, cfg, testLogger()), verifier
}

func TestSessionService_StartAndRestore(t *testing.T) {
	svc, verifier := setupSessionService(t)
	ctx := context.Background()

	session, cookie, err := svc.Start(ctx, "rt-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if session.AccessToken != "access-rt-1" {
		t.Errorf("AccessToken = %q", session.AccessToken)
	}

	if cookie.Name != "vm_refresh_token" || cookie.Path != "/" {
		t.Errorf("cookie name/path = %q/%q", cookie.Name, cookie.Path)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = %+v", cookie)
	}
	if cookie.MaxAge != 90*24*60*60 {
		t.Errorf("MaxAge = %d", cookie.MaxAge)
	}
	if cookie.Value == "" || cookie.Value == "rt-1+" {
		t.Errorf("cookie value should be sealed, got %q", cookie.Value)
	}

	session, next, err := svc.Restore(ctx, cookie)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if verifier.refreshed[1] != "rt-1+" {
		t.Errorf("Restore refreshed %q, want the rotated token", verifier.refreshed[1])
	}
	if session.AccessToken != "access-rt-1+" {
		t.Errorf("AccessToken = %q", session.AccessToken)
	}
	if next.Value == cookie.Value {
		t.Error("restored cookie should carry the rotated token")
	}
}

func TestSessionService_Errors(t *testing.T) {
	svc, verifier := setupSessionService(t)
	ctx := context.Background()

	if _, _, err := svc.Start(ctx, " "); !errors.Is(err, domain.ErrMissingToken) {
		t.Errorf("Start empty error = %v", err)
	}
	if _, _, err := svc.Restore(ctx, nil); !errors.Is(err, domain.ErrMissingToken) {
		t.Errorf("Restore nil error = %v", err)
	}

	_, _, err := svc.Restore(ctx, &http.Cookie{Name: "vm_refresh_token", Value: "not-sealed"})
	if !errors.Is(err, domain.ErrUnauthorized) || !IsUnauthorized(err) {
		t.Errorf("Restore tampered error = %v, want ErrUnauthorized", err)
	}
	if len(verifier.refreshed) != 0 {
		t.Error("tampered cookie must not reach the auth server")
	}

	verifier.err = domain.ErrUnauthorized
	if _, _, err := svc.Start(ctx, "rt-1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Start rejected error = %v", err)
	}
}

func TestSessionService_ClearCookie(t *testing.T) {
	svc, _ := setupSessionService(t)

	c := svc.ClearCookie()
	if c.Name != svc.CookieName() || c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("ClearCookie() = %+v", c)
	}
}
