// Package chatbot wires the rule handlers, the intent classifier and the
// handbook index into a single answer pipeline.
//
// An incoming message is tried against the rule handlers first, in
// registration order. Only when none of them claims the message does the
// text get normalized, encoded and classified. Predictions below the
// confidence threshold fall back to a handbook search, and when that also
// comes up empty the user gets a polite "I did not understand" in their
// detected language.
package chatbot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/unklab-dev/kampusbot-go/internal/config"
	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/handbook"
	"github.com/unklab-dev/kampusbot-go/internal/handlers"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/metrics"
	"github.com/unklab-dev/kampusbot-go/internal/session"
	"github.com/unklab-dev/kampusbot-go/internal/storage"
	"github.com/unklab-dev/kampusbot-go/internal/stringutil"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

const (
	fallbackIndonesian = "Maaf, saya belum memahami pertanyaan Anda. Bisa coba dengan kata lain?"
	fallbackEnglish    = "Sorry, I don't quite understand. Could you rephrase?"

	// Probability of prefixing an answer with the user's remembered name.
	personalizeChance = 0.5
)

// Reply is the outcome of a single exchange.
type Reply struct {
	Text       string
	Source     string // storage.Source* constant
	Handler    string // set when a rule handler produced the reply
	Tag        string // set when the classifier produced the reply
	Confidence float64
	Language   textproc.Language
}

// Options carries everything the dispatcher composes. Handbook, Repo and
// Metrics are optional and may be nil.
type Options struct {
	Registry   *handlers.Registry
	Normalizer *textproc.Normalizer
	NormOpts   textproc.Options
	Vectorizer *vectorizer.Vectorizer
	Classifier *knn.Classifier
	Dataset    *dataset.Dataset
	Handbook   *handbook.Index
	Sessions   *session.Manager
	Repo       *storage.Repository
	Metrics    *metrics.Metrics
	Logger     *logger.Logger

	ConfidenceThreshold float64
	ResponsePolicy      string
}

// Dispatcher answers chat messages.
type Dispatcher struct {
	registry   *handlers.Registry
	normalizer *textproc.Normalizer
	normOpts   textproc.Options
	vec        *vectorizer.Vectorizer
	clf        *knn.Classifier
	data       *dataset.Dataset
	handbook   *handbook.Index
	sessions   *session.Manager
	repo       *storage.Repository
	metrics    *metrics.Metrics
	log        *logger.Logger

	threshold float64
	policy    string

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Dispatcher from Options. Registry, Normalizer, Sessions
// and Logger are required. Vectorizer, Classifier and Dataset must be
// provided together; leaving all three nil yields a degraded dispatcher
// that answers from rule handlers and the handbook only.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil || opts.Normalizer == nil || opts.Sessions == nil || opts.Logger == nil {
		return nil, fmt.Errorf("chatbot: missing required dependency: %w", apperrors.ErrInvalidInput)
	}
	hasModel := opts.Vectorizer != nil && opts.Classifier != nil && opts.Dataset != nil
	if !hasModel && (opts.Vectorizer != nil || opts.Classifier != nil || opts.Dataset != nil) {
		return nil, fmt.Errorf("chatbot: encoder, classifier and dataset must be provided together: %w",
			apperrors.ErrInvalidInput)
	}
	if opts.ConfidenceThreshold < 0 || opts.ConfidenceThreshold > 1 {
		return nil, apperrors.NewValidationError("confidence_threshold",
			fmt.Sprintf("must be in [0, 1], got %v", opts.ConfidenceThreshold))
	}
	policy := opts.ResponsePolicy
	if policy == "" {
		policy = config.ResponsePolicyFirst
	}
	if policy != config.ResponsePolicyFirst && policy != config.ResponsePolicyRandom {
		return nil, apperrors.NewValidationError("response_policy",
			fmt.Sprintf("unknown policy %q", policy))
	}

	return &Dispatcher{
		registry:   opts.Registry,
		normalizer: opts.Normalizer,
		normOpts:   opts.NormOpts,
		vec:        opts.Vectorizer,
		clf:        opts.Classifier,
		data:       opts.Dataset,
		handbook:   opts.Handbook,
		sessions:   opts.Sessions,
		repo:       opts.Repo,
		metrics:    opts.Metrics,
		log:        opts.Logger.WithModule("chatbot"),
		threshold:  opts.ConfidenceThreshold,
		policy:     policy,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Reseed makes the random response policy reproducible.
func (d *Dispatcher) Reseed(seed int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng = rand.New(rand.NewSource(seed))
}

// Handle answers one message for the given session.
func (d *Dispatcher) Handle(ctx context.Context, sessionID, text string) (Reply, error) {
	start := time.Now()
	if strings.TrimSpace(text) == "" {
		return Reply{}, fmt.Errorf("chatbot: empty message: %w", apperrors.ErrInvalidInput)
	}

	sess := d.sessions.Get(sessionID)
	reply := d.answer(ctx, sess, text)

	if d.metrics != nil {
		d.metrics.RecordChat(reply.Source, "ok", time.Since(start).Seconds())
	}
	d.persist(ctx, sessionID, text, reply)

	return reply, nil
}

func (d *Dispatcher) answer(ctx context.Context, sess *session.Session, text string) Reply {
	if resp, name, ok := d.registry.Dispatch(ctx, sess, text); ok {
		if d.metrics != nil {
			d.metrics.RecordHandlerMatch(name)
		}
		return Reply{
			Text:     resp,
			Source:   storage.SourceHandler,
			Handler:  name,
			Language: textproc.LanguageIndonesian,
		}
	}

	norm := d.normalizer.Normalize(text, d.normOpts)
	if norm.Clean == "" {
		return d.fallback(norm.Language)
	}
	if d.clf == nil {
		return d.searchOrFallback(norm, sess)
	}

	pred, err := d.classify(norm.Clean)
	if err != nil {
		d.log.WithError(err).Warn("classification failed, falling back")
		return d.searchOrFallback(norm, sess)
	}
	if d.metrics != nil {
		d.metrics.RecordPrediction(pred.Tag, pred.Confidence)
	}
	if pred.Confidence < d.threshold {
		d.log.WithField("tag", pred.Tag).
			WithField("confidence", pred.Confidence).
			Debug("prediction below threshold")
		return d.searchOrFallback(norm, sess)
	}

	responses, ok := d.data.ResponsesFor(pred.Tag)
	if !ok || len(responses) == 0 {
		d.log.WithField("tag", pred.Tag).
			WithError(apperrors.ErrUnknownIntent).
			Warn("predicted tag has no responses")
		return d.searchOrFallback(norm, sess)
	}

	return Reply{
		Text:       d.personalize(sess, d.pickResponse(responses)),
		Source:     storage.SourceClassifier,
		Tag:        pred.Tag,
		Confidence: pred.Confidence,
		Language:   norm.Language,
	}
}

var (
	encodeErrors  = apperrors.NewWrapper("vectorizer", "encode_text")
	predictErrors = apperrors.NewWrapper("knn", "predict_intent")
)

func (d *Dispatcher) classify(clean string) (knn.Prediction, error) {
	vec, err := d.vec.Encode(clean)
	if err != nil {
		return knn.Prediction{}, encodeErrors.Wrap(err, "could not encode the message")
	}
	pred, err := d.clf.Predict(vec)
	if err != nil {
		return knn.Prediction{}, predictErrors.Wrapf(err, "could not classify %q", clean)
	}
	return pred, nil
}

// searchOrFallback consults the handbook index when one is configured.
func (d *Dispatcher) searchOrFallback(norm textproc.Result, sess *session.Session) Reply {
	if d.handbook == nil {
		return d.fallback(norm.Language)
	}

	results, err := d.handbook.Search(norm.Clean, 1)
	if err != nil {
		if !apperrors.IsNotFound(err) && !apperrors.IsInvalidInput(err) {
			d.log.WithError(err).Warn("handbook search failed")
		}
		if d.metrics != nil {
			d.metrics.RecordHandbookSearch("miss")
		}
		return d.fallback(norm.Language)
	}
	if d.metrics != nil {
		d.metrics.RecordHandbookSearch("hit")
	}

	best := results[0]
	return Reply{
		Text:       d.personalize(sess, best.Paragraph),
		Source:     storage.SourceHandbook,
		Confidence: best.Confidence,
		Language:   norm.Language,
	}
}

func (d *Dispatcher) fallback(lang textproc.Language) Reply {
	text := fallbackIndonesian
	if lang == textproc.LanguageEnglish {
		text = fallbackEnglish
	}
	return Reply{Text: text, Source: storage.SourceFallback, Language: lang}
}

func (d *Dispatcher) pickResponse(responses []string) string {
	if d.policy == config.ResponsePolicyFirst || len(responses) == 1 {
		return responses[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return responses[d.rng.Intn(len(responses))]
}

// personalize occasionally prefixes the answer with the remembered name,
// lowercasing the original first letter so the sentence still reads well.
func (d *Dispatcher) personalize(sess *session.Session, text string) string {
	name := sess.Name()
	if name == "" || !sess.Chance(personalizeChance) {
		return text
	}
	return fmt.Sprintf("%s, %s", name, stringutil.LowerFirst(text))
}

func (d *Dispatcher) persist(ctx context.Context, sessionID, message string, reply Reply) {
	if d.repo == nil {
		return
	}
	entry := &storage.ChatLog{
		SessionID:  sessionID,
		Message:    message,
		Response:   reply.Text,
		Source:     reply.Source,
		Tag:        reply.Tag,
		Confidence: reply.Confidence,
		Language:   string(reply.Language),
	}
	if err := d.repo.Insert(ctx, entry); err != nil {
		d.log.WithError(err).Error("failed to persist chat log")
	}
}
