package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
)

const tokenBytes = 24

// IssuedToken is returned once when a token is created; only its hash is stored.
type IssuedToken struct {
	Token  string `json:"token"`
	Prefix string `json:"prefix"`
}

// TokenService issues and checks intake webhook tokens.
type TokenService struct {
	repo   repository.TokenRepository
	logger *slog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(repo repository.TokenRepository, logger *slog.Logger) *TokenService {
	return &TokenService{
		repo:   repo,
		logger: logger,
	}
}

// Issue revokes the user's active tokens and creates a new one.
func (s *TokenService) Issue(ctx context.Context, userID string) (*IssuedToken, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	now := time.Now().UTC()

	token := &domain.APIToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: domain.HashToken(raw),
		Prefix:    domain.TokenPrefix(raw),
		CreatedAt: now,
	}
	if err := s.repo.Rotate(ctx, token, now); err != nil {
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	s.logger.Info("issued intake token", "user_id", userID, "prefix", token.Prefix)
	return &IssuedToken{Token: raw, Prefix: token.Prefix}, nil
}

// Authenticate resolves a raw token to its active record.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (*domain.APIToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMissingToken
	}

	token, err := s.repo.FindByHash(ctx, domain.HashToken(raw))
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	if !token.Active() || token.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	return token, nil
}
