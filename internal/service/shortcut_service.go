package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"howett.net/plist"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
)

const maxShortcutBytes = 10 << 20

var shortcutIDPattern = regexp.MustCompile(`(?i)shortcuts/([0-9a-f]{32})`)

// Shortcut errors.
var (
	ErrShortcutNotConfigured = errors.New("shortcut template URL is not configured")
	ErrShortcutTemplate      = errors.New("failed to load shortcut template")
	ErrShortcutDownloadURL   = errors.New("shortcut download URL not found")
	ErrShortcutDownload      = errors.New("unable to download shortcut file")
)

// ShortcutService builds an iOS Shortcut with the user's intake token
// filled in, starting from the shared template on iCloud.
type ShortcutService struct {
	cfg        config.ShortcutConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewShortcutService creates a new shortcut service.
func NewShortcutService(cfg config.ShortcutConfig, logger *slog.Logger) *ShortcutService {
	return &ShortcutService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// TemplateID extracts the 32-hex-digit shortcut ID from a share URL.
func TemplateID(templateURL string) (string, bool) {
	m := shortcutIDPattern.FindStringSubmatch(templateURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type icloudRecord struct {
	Fields struct {
		Shortcut struct {
			Value struct {
				DownloadURL string `json:"downloadURL"`
			} `json:"value"`
		} `json:"shortcut"`
	} `json:"fields"`
}

// Build downloads the template and returns it as a binary property list
// with every placeholder replaced by token.
func (s *ShortcutService) Build(ctx context.Context, token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	id, ok := TemplateID(s.cfg.TemplateURL)
	if !ok {
		return nil, ErrShortcutNotConfigured
	}

	recordURL := strings.TrimRight(s.cfg.ICloudBaseURL, "/") + "/shortcuts/api/records/" + id
	body, err := s.fetch(ctx, recordURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortcutTemplate, err)
	}

	var record icloudRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortcutTemplate, err)
	}
	downloadURL := record.Fields.Shortcut.Value.DownloadURL
	if downloadURL == "" {
		return nil, ErrShortcutDownloadURL
	}

	raw, err := s.fetch(ctx, downloadURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortcutDownload, err)
	}

	var doc interface{}
	if _, err := plist.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse shortcut: %w", err)
	}

	out, err := plist.Marshal(ReplacePlaceholders(doc, token, s.cfg.Placeholders()), plist.BinaryFormat)
	if err != nil {
		return nil, fmt.Errorf("encode shortcut: %w", err)
	}

	s.logger.Info("built personalized shortcut", "template_id", id, "size", len(out))
	return out, nil
}

// ReplacePlaceholders walks a decoded property list and substitutes token
// for every placeholder occurrence inside string values.
func ReplacePlaceholders(v interface{}, token string, placeholders []string) interface{} {
	switch val := v.(type) {
	case string:
		for _, p := range placeholders {
			if p != "" {
				val = strings.ReplaceAll(val, p, token)
			}
		}
		return val
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = ReplacePlaceholders(item, token, placeholders)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = ReplacePlaceholders(item, token, placeholders)
		}
		return out
	default:
		return v
	}
}

func (s *ShortcutService) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxShortcutBytes))
}
