package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/valueminer/valueminer/internal/repository"
	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/resend"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

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
	text  string
	err   error
	calls []string
}

func (m *mockTranscripts) Transcript(ctx context.Context, videoID, lang string) (*searchapi.Transcript, error) {
	m.calls = append(m.calls, videoID)
	if m.err != nil {
		return nil, m.err
	}
	return &searchapi.Transcript{
		Segments: []searchapi.Segment{{Text: m.text}},
	}, nil
}

// mockSummarizer parses a canned model reply.
type mockSummarizer struct {
	reply string
	err   error
	got   []openai.SummarizeRequest
}

func (m *mockSummarizer) Summarize(ctx context.Context, req openai.SummarizeRequest) (*openai.Result, error) {
	m.got = append(m.got, req)
	if m.err != nil {
		return nil, m.err
	}
	return openai.ParseReply(m.reply)
}

const healthReply = `{"analysis":"Sleep is a lever. Guard it. Track it.","actionPlan":["Set a bedtime","Cut caffeine after noon","Dim screens"],"category":"health"}`

// mockMailer records sent emails and can fail for specific recipients.
type mockMailer struct {
	mu     sync.Mutex
	sent   []resend.Email
	failTo map[string]error
	err    error
}

func (m *mockMailer) Send(ctx context.Context, msg resend.Email) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if err, ok := m.failTo[msg.To]; ok {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return "email-id", nil
}
