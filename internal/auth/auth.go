// Package auth verifies Supabase access tokens and refreshes sessions.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"

	"github.com/valueminer/valueminer/internal/domain"
)

// Session is a refreshed Supabase session.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         domain.User `json:"user"`
}

// Verifier resolves bearer tokens to users.
type Verifier interface {
	// User returns the user an access token belongs to.
	User(ctx context.Context, accessToken string) (*domain.User, error)
	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

// SupabaseVerifier implements Verifier against the GoTrue API.
type SupabaseVerifier struct {
	client gotrue.Client
}

// NewSupabaseVerifier creates a verifier for the GoTrue endpoint at authURL
// (for a hosted project, "<project url>/auth/v1").
func NewSupabaseVerifier(authURL, apiKey string) *SupabaseVerifier {
	return &SupabaseVerifier{
		client: gotrue.New("", apiKey).WithCustomGoTrueURL(strings.TrimRight(authURL, "/")),
	}
}

// User returns domain.ErrUnauthorized when GoTrue rejects the token.
func (v *SupabaseVerifier) User(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.ErrMissingToken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := v.client.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	return &domain.User{ID: resp.ID.String(), Email: resp.Email}, nil
}

// Refresh returns domain.ErrUnauthorized when the refresh token is rejected.
func (v *SupabaseVerifier) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingToken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := v.client.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    resp.ExpiresAt,
		User:         domain.User{ID: resp.User.ID.String(), Email: resp.User.Email},
	}, nil
}
