package service

import (
	"context"

	"github.com/valueminer/valueminer/pkg/openai"
	"github.com/valueminer/valueminer/pkg/resend"
	"github.com/valueminer/valueminer/pkg/searchapi"
)

// TranscriptFetcher retrieves the transcript of a video.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID, lang string) (*searchapi.Transcript, error)
}

// Summarizer turns a transcript into an analysis, action plan and category.
type Summarizer interface {
	Summarize(ctx context.Context, req openai.SummarizeRequest) (*openai.Result, error)
}

// Mailer delivers report emails.
type Mailer interface {
	Send(ctx context.Context, msg resend.Email) (string, error)
}
