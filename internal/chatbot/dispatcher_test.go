package chatbot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/unklab-dev/kampusbot-go/internal/config"
	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/handbook"
	"github.com/unklab-dev/kampusbot-go/internal/handlers"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/session"
	"github.com/unklab-dev/kampusbot-go/internal/storage"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Intents: []dataset.Intent{
			{
				Tag:      "sapa",
				Patterns: []string{"halo", "hai", "selamat pagi"},
				Responses: []string{
					"Halo! Ada yang bisa saya bantu?",
					"Hai juga! Senang bertemu kamu.",
				},
			},
			{
				Tag:       "pamit",
				Patterns:  []string{"sampai jumpa", "dadah", "selamat tinggal"},
				Responses: []string{"Sampai jumpa lagi!"},
			},
		},
	}
}

type dispatcherOpts struct {
	threshold float64
	policy    string
	handbook  *handbook.Index
	repo      *storage.Repository
}

func testDispatcher(t *testing.T, o dispatcherOpts) *Dispatcher {
	t.Helper()

	log := logger.NewWithWriter("error", io.Discard)
	data := testDataset()
	norm := textproc.NewNormalizer(nil)

	patterns, tags := data.TrainingSamples()
	corpus := make([]string, len(patterns))
	for i, p := range patterns {
		corpus[i] = norm.Normalize(p, textproc.Options{}).Clean
	}

	vec, err := vectorizer.New(vectorizer.DefaultConfig())
	if err != nil {
		t.Fatalf("vectorizer.New: %v", err)
	}
	if err := vec.Fit(corpus); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	vectors := make([]vectorizer.Vector, len(corpus))
	for i, text := range corpus {
		vectors[i], err = vec.Encode(text)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	clf := knn.New(1)
	if err := clf.Fit(vectors, tags); err != nil {
		t.Fatalf("classifier Fit: %v", err)
	}

	if o.threshold == 0 {
		o.threshold = 0.25
	}
	d, err := New(Options{
		Registry: handlers.NewRegistry(
			handlers.NewArithmetic(),
			handlers.NewTimeDate(nil),
			handlers.NewNameMemory(),
		),
		Normalizer:          norm,
		Vectorizer:          vec,
		Classifier:          clf,
		Dataset:             data,
		Handbook:            o.handbook,
		Sessions:            session.NewManager(time.Minute, log),
		Repo:                o.repo,
		Logger:              log,
		ConfidenceThreshold: o.threshold,
		ResponsePolicy:      o.policy,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestHandle_ClassifierGreeting(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{})

	reply, err := d.Handle(context.Background(), "s1", "Halo!")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceClassifier {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceClassifier)
	}
	if reply.Tag != "sapa" {
		t.Errorf("Tag = %q, want sapa", reply.Tag)
	}
	if reply.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want >= 0.9 for an exact pattern", reply.Confidence)
	}
	if reply.Text != "Halo! Ada yang bisa saya bantu?" {
		t.Errorf("Text = %q, want the first sapa response", reply.Text)
	}
}

func TestHandle_HandlerShortCircuit(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{})

	reply, err := d.Handle(context.Background(), "s1", "10 kali 5")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceHandler {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceHandler)
	}
	if reply.Handler != "arithmetic" {
		t.Errorf("Handler = %q, want arithmetic", reply.Handler)
	}
	if reply.Text != "10.0 × 5.0 = 50.0" {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestHandle_NameRoundTrip(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{})
	ctx := context.Background()

	reply, err := d.Handle(ctx, "s1", "Nama saya Budi")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Handler != "namememory" {
		t.Fatalf("Handler = %q, want namememory", reply.Handler)
	}

	reply, err = d.Handle(ctx, "s1", "siapa nama saya?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Text != "Nama kamu adalah Budi." {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestHandle_FallbackByLanguage(t *testing.T) {
	// A threshold this high forces every classifier answer into fallback.
	d := testDispatcher(t, dispatcherOpts{threshold: 0.99})
	ctx := context.Background()

	reply, err := d.Handle(ctx, "s1", "apakah ada kegiatan kampus besok")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceFallback {
		t.Fatalf("Source = %q, want %q", reply.Source, storage.SourceFallback)
	}
	if reply.Text != fallbackIndonesian {
		t.Errorf("Text = %q, want Indonesian fallback", reply.Text)
	}

	reply, err = d.Handle(ctx, "s1", "what is the schedule for today")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Text != fallbackEnglish {
		t.Errorf("Text = %q, want English fallback", reply.Text)
	}
}

func TestHandle_HandbookFallback(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)
	idx, err := handbook.NewIndex([]string{
		"Perpustakaan universitas buka setiap hari kerja pukul 08.00 sampai 17.00.",
		"Mahasiswa wajib mengikuti ibadah kapel setiap pagi sebelum perkuliahan dimulai.",
	}, log)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	d := testDispatcher(t, dispatcherOpts{threshold: 0.99, handbook: idx})

	reply, err := d.Handle(context.Background(), "s1", "dimana letak perpustakaan universitas")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceHandbook {
		t.Fatalf("Source = %q, want %q (got text %q)", reply.Source, storage.SourceHandbook, reply.Text)
	}
	if !strings.Contains(reply.Text, "Perpustakaan") {
		t.Errorf("Text = %q, want the library paragraph", reply.Text)
	}
	if reply.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want rank-1 confidence", reply.Confidence)
	}
}

func TestHandle_Personalization(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{})
	ctx := context.Background()

	if _, err := d.Handle(ctx, "s1", "Nama saya Budi"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var personalized, plain int
	for i := 0; i < 60; i++ {
		reply, err := d.Handle(ctx, "s1", "halo")
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if strings.HasPrefix(reply.Text, "Budi, ") {
			personalized++
		} else {
			plain++
		}
	}
	if personalized == 0 || plain == 0 {
		t.Errorf("Expected a mix of personalized and plain replies, got %d/%d", personalized, plain)
	}
}

func TestHandle_PersistsChatLog(t *testing.T) {
	db, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("NewTestDB: %v", err)
	}
	defer db.Close()
	repo := storage.NewRepository(db)

	d := testDispatcher(t, dispatcherOpts{repo: repo})
	ctx := context.Background()

	if _, err := d.Handle(ctx, "s1", "halo"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	logs, err := repo.RecentBySession(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentBySession: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("Got %d chat logs, want 1", len(logs))
	}
	if logs[0].Source != storage.SourceClassifier {
		t.Errorf("Source = %q, want %q", logs[0].Source, storage.SourceClassifier)
	}
	if logs[0].Tag != "sapa" {
		t.Errorf("Tag = %q, want sapa", logs[0].Tag)
	}
}

func TestHandle_EmptyMessage(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{})

	_, err := d.Handle(context.Background(), "s1", "   ")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestHandle_RandomPolicyStaysInSet(t *testing.T) {
	d := testDispatcher(t, dispatcherOpts{policy: config.ResponsePolicyRandom})
	d.Reseed(42)

	valid := map[string]bool{
		"Halo! Ada yang bisa saya bantu?": true,
		"Hai juga! Senang bertemu kamu.":  true,
	}
	for i := 0; i < 20; i++ {
		reply, err := d.Handle(context.Background(), "s1", "halo")
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if !valid[reply.Text] {
			t.Fatalf("Reply %q is not one of the sapa responses", reply.Text)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing deps, got %v", err)
	}

	log := logger.NewWithWriter("error", io.Discard)
	_, err = New(Options{
		Registry:            handlers.NewRegistry(handlers.NewArithmetic()),
		Normalizer:          textproc.NewNormalizer(nil),
		Sessions:            session.NewManager(time.Minute, log),
		Logger:              log,
		ConfidenceThreshold: 1.5,
	})
	var vErr *apperrors.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected ValidationError for bad threshold, got %v", err)
	}
	if vErr.Field != "confidence_threshold" {
		t.Errorf("Field = %q, want %q", vErr.Field, "confidence_threshold")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ValidationError to report invalid input, got %v", err)
	}
}

func TestClassify_UnfittedModelErrorContext(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)
	vec, err := vectorizer.New(vectorizer.DefaultConfig())
	if err != nil {
		t.Fatalf("vectorizer.New: %v", err)
	}

	d, err := New(Options{
		Registry:   handlers.NewRegistry(handlers.NewArithmetic()),
		Normalizer: textproc.NewNormalizer(nil),
		Vectorizer: vec,
		Classifier: knn.New(1),
		Dataset:    testDataset(),
		Sessions:   session.NewManager(time.Minute, log),
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = d.classify("halo")
	if !errors.Is(err, apperrors.ErrNotFitted) {
		t.Fatalf("Expected ErrNotFitted, got %v", err)
	}
	if !strings.Contains(err.Error(), "[vectorizer:encode_text]") {
		t.Errorf("Error %q missing encode operation context", err.Error())
	}

	// An unfitted model must not take down the request: the dispatcher
	// logs the failure and answers with the fallback.
	reply, err := d.Handle(context.Background(), "s1", "halo")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceFallback {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceFallback)
	}
}

func TestHandle_DegradedWithoutClassifier(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)
	idx, err := handbook.NewIndex([]string{
		"Perpustakaan universitas buka setiap hari kerja pukul 08.00 sampai 17.00.",
	}, log)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	d, err := New(Options{
		Registry:   handlers.NewRegistry(handlers.NewArithmetic(), handlers.NewTimeDate(nil), handlers.NewNameMemory()),
		Normalizer: textproc.NewNormalizer(nil),
		Handbook:   idx,
		Sessions:   session.NewManager(time.Minute, log),
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	reply, err := d.Handle(ctx, "s1", "5 tambah 3")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceHandler {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceHandler)
	}

	reply, err = d.Handle(ctx, "s1", "dimana letak perpustakaan")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceHandbook {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceHandbook)
	}

	reply, err = d.Handle(ctx, "s1", "apakah ada kegiatan besok")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply.Source != storage.SourceFallback {
		t.Errorf("Source = %q, want %q", reply.Source, storage.SourceFallback)
	}
}

func TestNew_PartialModelRejected(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)
	_, err := New(Options{
		Registry:   handlers.NewRegistry(),
		Normalizer: textproc.NewNormalizer(nil),
		Dataset:    testDataset(),
		Sessions:   session.NewManager(time.Minute, log),
		Logger:     log,
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for dataset without model, got %v", err)
	}
}
