package voice

import (
	"context"

	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
)

// SpeakQueue serializes synthesis onto one background worker so the
// dispatch path never waits for audio output.
type SpeakQueue struct {
	synth Synthesizer
	queue chan speakRequest
	log   *logger.Logger
}

type speakRequest struct {
	text string
	lang textproc.Language
}

// NewSpeakQueue creates a queue with the given buffer size.
func NewSpeakQueue(synth Synthesizer, buffer int, log *logger.Logger) *SpeakQueue {
	if buffer < 1 {
		buffer = 8
	}
	return &SpeakQueue{
		synth: synth,
		queue: make(chan speakRequest, buffer),
		log:   log.WithModule("voice"),
	}
}

// Enqueue schedules text for synthesis. Returns false when the queue is
// full; the caller drops the utterance rather than blocking.
func (q *SpeakQueue) Enqueue(text string, lang textproc.Language) bool {
	select {
	case q.queue <- speakRequest{text: text, lang: lang}:
		return true
	default:
		q.log.Warn("speak queue full, utterance dropped")
		return false
	}
}

// Run processes the queue until ctx is canceled. Synthesis errors are
// logged and do not stop the worker.
func (q *SpeakQueue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-q.queue:
			if err := q.synth.Speak(ctx, req.text, req.lang); err != nil {
				q.log.WithError(err).Warn("speech synthesis failed")
			}
		}
	}
}
