// Package voice defines the speech collaborator contracts. Capture and
// synthesis are long-running I/O against external engines, so they run
// off the dispatch path: capture is bounded by a timeout and resolves to
// a status instead of hanging, and synthesis is serialized on a
// background worker.
package voice

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
)

// Status classifies the outcome of a capture attempt.
type Status int

// Capture outcomes.
const (
	StatusOK Status = iota
	StatusNoSpeech
	StatusTimeout
	StatusNetworkError
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoSpeech:
		return "no_speech"
	case StatusTimeout:
		return "timeout"
	case StatusNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// CaptureResult is the outcome of one listen attempt.
type CaptureResult struct {
	Text   string
	Status Status
	Err    error
}

// Transcriber converts captured speech to text. Implementations return
// ErrNoSpeech when nothing intelligible was captured and wrap transport
// failures in their own errors.
type Transcriber interface {
	Transcribe(ctx context.Context, lang textproc.Language) (string, error)
}

// Synthesizer speaks a response aloud.
type Synthesizer interface {
	Speak(ctx context.Context, text string, lang textproc.Language) error
}

// ListenWithTimeout runs one capture attempt bounded by timeout. It
// always resolves: a transcriber that never returns yields a timeout
// result, not a hang. The abandoned goroutine is left to finish against
// its canceled context.
func ListenWithTimeout(ctx context.Context, t Transcriber, lang textproc.Language, timeout time.Duration) CaptureResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := t.Transcribe(ctx, lang)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return CaptureResult{Status: StatusTimeout, Err: apperrors.ErrTimeout}
	case out := <-done:
		switch {
		case out.err == nil:
			return CaptureResult{Text: out.text, Status: StatusOK}
		case errors.Is(out.err, apperrors.ErrNoSpeech):
			return CaptureResult{Status: StatusNoSpeech, Err: out.err}
		case errors.Is(out.err, context.DeadlineExceeded):
			return CaptureResult{Status: StatusTimeout, Err: apperrors.ErrTimeout}
		default:
			return CaptureResult{Status: StatusNetworkError, Err: out.err}
		}
	}
}
