package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/valueminer/valueminer/internal/domain"
)

func setupTokenService(t *testing.T) *TokenService {
	t.Helper()
	store := newTestStore(t)
	return NewTokenService(store.Tokens(), testLogger())
}

func TestTokenService_Issue(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(issued.Token) != 48 {
		t.Errorf("token length = %d, want 48", len(issued.Token))
	}
	if issued.Prefix != issued.Token[:6] {
		t.Errorf("Prefix = %q, want %q", issued.Prefix, issued.Token[:6])
	}

	token, err := svc.Authenticate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if token.UserID != "user-1" {
		t.Errorf("UserID = %q", token.UserID)
	}
	if token.TokenHash != domain.HashToken(issued.Token) {
		t.Error("stored hash does not match the raw token")
	}
}

func TestTokenService_Issue_RevokesPrevious(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	other, err := svc.Issue(ctx, "user-2")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := svc.Issue(ctx, "user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("tokens should differ")
	}

	if _, err := svc.Authenticate(ctx, first.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("revoked token error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(ctx, second.Token); err != nil {
		t.Errorf("new token should authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, other.Token); err != nil {
		t.Errorf("other user's token should stay active: %v", err)
	}
}

func TestTokenService_Issue_ConcurrentLeavesOneActive(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	const n = 8
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued, err := svc.Issue(ctx, "user-1")
			errs[i] = err
			if err == nil {
				tokens[i] = issued.Token
			}
		}(i)
	}
	wg.Wait()

	active := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Issue %d failed: %v", i, errs[i])
		}
		if _, err := svc.Authenticate(ctx, tokens[i]); err == nil {
			active++
		}
	}
	if active != 1 {
		t.Errorf("active tokens = %d, want 1", active)
	}
}

func TestTokenService_Authenticate_Errors(t *testing.T) {
	svc := setupTokenService(t)
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "  "); !errors.Is(err, domain.ErrMissingToken) {
		t.Errorf("empty token error = %v, want ErrMissingToken", err)
	}
	if _, err := svc.Authenticate(ctx, "unknown"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("unknown token error = %v, want ErrInvalidToken", err)
	}
}
