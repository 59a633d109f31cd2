package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/valueminer/valueminer/internal/auth"
	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/internal/service"
	"github.com/valueminer/valueminer/pkg/crypto"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/resend"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// mockTranscripts returns a fixed transcript or error.
type mockTranscripts struct {
	text string
	err  error
}

func (m *mockTranscripts) Transcript(ctx context.Context, videoID, lang string) (*searchapi.Transcript, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &searchapi.Transcript{
		Segments: []searchapi.Segment{{Text: m.text, Start: 0, Duration: 2.5}},
		Language: "en",
		Type:     "auto",
	}, nil
}

// mockSummarizer parses a canned model reply.
type mockSummarizer struct {
	reply string
	err   error
}

func (m *mockSummarizer) Summarize(ctx context.Context, req openai.SummarizeRequest) (*openai.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return openai.ParseReply(m.reply)
}

const businessReply = `{"analysis":"Cash flow matters. Price higher. Ship faster.","actionPlan":["Raise prices","Invoice weekly","Cut one tool"],"category":"Business"}`

// mockMailer records sent emails.
type mockMailer struct {
	mu   sync.Mutex
	sent []resend.Email
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg resend.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "email-id", nil
}

// mockVerifier accepts refresh tokens listed in valid.
type mockVerifier struct {
	valid map[string]bool
}

func (m *mockVerifier) User(ctx context.Context, accessToken string) (*domain.User, error) {
	return nil, domain.ErrUnauthorized
}

func (m *mockVerifier) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if !m.valid[refreshToken] {
		return nil, domain.ErrUnauthorized
	}
	return &auth.Session{
		AccessToken:  "access-" + refreshToken,
		RefreshToken: refreshToken + "-next",
		ExpiresAt:    1767225600,
		User:         domain.User{ID: "user-1", Email: "a@example.com"},
	}, nil
}

// testEnv wires real services over a temporary SQLite store.
type testEnv struct {
	store       *repository.SQLiteStore
	transcripts *mockTranscripts
	summarizer  *mockSummarizer
	mailer      *mockMailer
	verifier    *mockVerifier

	folders  *service.FolderService
	clips    *service.ClipService
	intakes  *service.IntakeService
	tokens   *service.TokenService
	reports  *service.ReportService
	sessions *service.SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	store := newTestStore(t)

	env := &testEnv{
		store:       store,
		transcripts: &mockTranscripts{text: "Talk about pricing and cash flow."},
		summarizer:  &mockSummarizer{reply: businessReply},
		mailer:      &mockMailer{},
		verifier:    &mockVerifier{valid: map[string]bool{"rt-good": true}},
	}

	sealer, err := crypto.NewSealer("test-session-secret")
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	env.folders = service.NewFolderService(store.Folders(), logger)
	env.clips = service.NewClipService(store.Clips(), env.folders, env.transcripts, env.summarizer, logger)
	env.intakes = service.NewIntakeService(store.Intakes(), store.Clips(), env.folders, env.transcripts, env.summarizer,
		config.IntakeConfig{Timeout: 5 * time.Second}, logger)
	env.tokens = service.NewTokenService(store.Tokens(), logger)
	env.reports = service.NewReportService(store.Reports(), store.Users(), store.Clips(), env.mailer, 0, logger)
	env.sessions = service.NewSessionService(env.verifier, sealer, config.SessionConfig{
		CookieName: "vm_refresh_token",
		MaxAge:     90 * 24 * time.Hour,
		Secure:     true,
	}, logger)

	return env
}

var testUser = &domain.User{ID: "user-1", Email: "a@example.com"}

// asUser attaches the authenticated user to the request context.
func asUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), user))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}
