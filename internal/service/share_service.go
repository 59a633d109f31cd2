package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/pkg/ui"
)

const (
	shareTitle         = "Saved with ScrollMiner"
	maxPreviewBytes    = 2 << 20
	shareQueryParam    = "u"
	shareDescSeparator = " • "
)

// Share URL errors.
var (
	ErrMissingShareURL   = errors.New("missing share URL")
	ErrInvalidShareURL   = errors.New("invalid share URL")
	ErrUnsupportedScheme = errors.New("unsupported URL protocol")
)

// Preview is the OpenGraph data scraped from a shared page.
type Preview struct {
	Title string
	Image string
}

// SharePage is the data rendered into the share page template.
type SharePage struct {
	Title        string
	Description  string
	CanonicalURL string
	Image        string
	TargetURL    string
	PreviewTitle string
	HomeURL      string
}

// ShareService renders the public share page for a saved video.
type ShareService struct {
	cfg        config.ShareConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewShareService creates a new share service.
func NewShareService(cfg config.ShareConfig, logger *slog.Logger) *ShareService {
	return &ShareService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// ParseTarget validates the shared URL. Only http and https are accepted.
func ParseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingShareURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidShareURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	return u, nil
}

// Preview fetches the target page and reads its OpenGraph title and image,
// falling back to the Twitter card tags.
func (s *ShareService) Preview(ctx context.Context, target string) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch preview: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch preview: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPreviewBytes))
	if err != nil {
		return nil, fmt.Errorf("parse preview: %w", err)
	}

	return &Preview{
		Title: firstMeta(doc, "og:title", "twitter:title"),
		Image: firstMeta(doc, "og:image", "twitter:image"),
	}, nil
}

// Page builds the share page for target. A failed preview still yields a
// page, just without the title and image.
func (s *ShareService) Page(ctx context.Context, target *url.URL) *SharePage {
	targetURL := target.String()
	home := strings.TrimRight(s.cfg.PublicURL, "/")

	page := &SharePage{
		Title:        shareTitle,
		Description:  shareTitle,
		CanonicalURL: home + "/s?" + shareQueryParam + "=" + url.QueryEscape(targetURL),
		TargetURL:    targetURL,
		HomeURL:      home,
	}

	preview, err := s.Preview(ctx, targetURL)
	if err != nil {
		s.logger.Debug("share preview unavailable", "url", targetURL, "error", err)
		return page
	}
	if preview.Title != "" {
		page.Description = shareTitle + shareDescSeparator + preview.Title
		page.PreviewTitle = preview.Title
	}
	page.Image = preview.Image
	return page
}

// Render writes the share page as HTML.
func (s *ShareService) Render(w io.Writer, page *SharePage) error {
	if err := ui.ShareTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render share page: %w", err)
	}
	return nil
}

func firstMeta(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		for _, attr := range []string{"property", "name"} {
			sel := doc.Find(fmt.Sprintf("meta[%s=%q]", attr, name)).First()
			if v, ok := sel.Attr("content"); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
