package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/pkg/crypto"
)

// SessionService keeps a browser session alive by storing the refresh
// token in a sealed cookie.
type SessionService struct {
	verifier auth.Verifier
	sealer   *crypto.Sealer
	cfg      config.SessionConfig
	logger   *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	verifier auth.Verifier,
	sealer *crypto.Sealer,
	cfg config.SessionConfig,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		verifier: verifier,
		sealer:   sealer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start refreshes the session for refreshToken and returns the cookie that
// carries the rotated refresh token.
func (s *SessionService) Start(ctx context.Context, refreshToken string) (*auth.Session, *http.Cookie, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, nil, domain.ErrMissingToken
	}
	return s.refresh(ctx, refreshToken)
}

// Restore opens the session cookie and refreshes it.
func (s *SessionService) Restore(ctx context.Context, cookie *http.Cookie) (*auth.Session, *http.Cookie, error) {
	if cookie == nil || cookie.Value == "" {
		return nil, nil, domain.ErrMissingToken
	}

	refreshToken, err := s.sealer.Open(cookie.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return s.refresh(ctx, refreshToken)
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (*auth.Session, *http.Cookie, error) {
	session, err := s.verifier.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	next := session.RefreshToken
	if next == "" {
		next = refreshToken
	}
	sealed, err := s.sealer.Seal(next)
	if err != nil {
		return nil, nil, fmt.Errorf("seal session: %w", err)
	}

	s.logger.Debug("refreshed session", "user_id", session.User.ID)
	return session, s.cookie(sealed, int(s.cfg.MaxAge.Seconds())), nil
}

// CookieName returns the name of the session cookie.
func (s *SessionService) CookieName() string {
	return s.cfg.CookieName
}

// ClearCookie returns a cookie that deletes the session cookie.
func (s *SessionService) ClearCookie() *http.Cookie {
	return s.cookie("", -1)
}

func (s *SessionService) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IsUnauthorized reports whether err means the session cannot be restored.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrMissingToken)
}
