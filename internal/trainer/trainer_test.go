package trainer

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

func trainingDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Intents: []dataset.Intent{
			{
				Tag: "sapa",
				Patterns: []string{
					"halo", "hai apa kabar", "selamat pagi", "halo selamat siang", "hai halo",
				},
				Responses: []string{"Halo! Ada yang bisa saya bantu?"},
			},
			{
				Tag: "pendaftaran",
				Patterns: []string{
					"bagaimana cara mendaftar", "syarat pendaftaran mahasiswa baru",
					"kapan pendaftaran dibuka", "biaya pendaftaran berapa", "daftar ulang mahasiswa",
				},
				Responses: []string{"Pendaftaran dibuka setiap bulan Juni."},
			},
			{
				Tag: "asrama",
				Patterns: []string{
					"jadwal asrama putra", "peraturan asrama kampus",
					"jam malam asrama", "fasilitas asrama putri", "biaya asrama per semester",
				},
				Responses: []string{"Informasi asrama tersedia di kantor kemahasiswaan."},
			},
		},
	}
}

func testOptions() Options {
	return Options{
		K:                1,
		VectorizerConfig: vectorizer.DefaultConfig(),
		NormOpts:         textproc.Options{RemoveStopwords: true, ApplyStemming: true},
		Logger:           logger.NewWithWriter("error", io.Discard),
	}
}

func TestTrain(t *testing.T) {
	result, err := Train(context.Background(), trainingDataset(), testOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	// 5 samples per class at a 0.2 fraction holds out one each.
	if result.Evaluation.TestSamples != 3 {
		t.Errorf("TestSamples = %d, want 3", result.Evaluation.TestSamples)
	}
	if result.Evaluation.Accuracy < 0.6 {
		t.Errorf("Accuracy = %v, want >= 0.6 on well-separated classes", result.Evaluation.Accuracy)
	}
	if result.Evaluation.F1 < 0 || result.Evaluation.F1 > 1 {
		t.Errorf("F1 = %v out of range", result.Evaluation.F1)
	}

	var confusionTotal int
	for _, row := range result.Evaluation.Confusion {
		for _, n := range row {
			confusionTotal += n
		}
	}
	if confusionTotal != result.Evaluation.TestSamples {
		t.Errorf("Confusion matrix counts %d samples, want %d", confusionTotal, result.Evaluation.TestSamples)
	}

	m := result.Artifacts.Manifest
	if m.Fingerprint == "" {
		t.Error("Manifest fingerprint is empty")
	}
	if m.Samples != 15 {
		t.Errorf("Manifest.Samples = %d, want 15", m.Samples)
	}
	if m.Classes != 3 {
		t.Errorf("Manifest.Classes = %d, want 3", m.Classes)
	}
	if m.Vocabulary != result.Vectorizer.VocabularySize() {
		t.Errorf("Manifest.Vocabulary = %d, want %d", m.Vocabulary, result.Vectorizer.VocabularySize())
	}
}

func TestTrain_Deterministic(t *testing.T) {
	ctx := context.Background()
	first, err := Train(ctx, trainingDataset(), testOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	second, err := Train(ctx, trainingDataset(), testOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if first.Artifacts.Manifest.Fingerprint != second.Artifacts.Manifest.Fingerprint {
		t.Error("Fingerprints differ between identical runs")
	}
	if first.Evaluation.Accuracy != second.Evaluation.Accuracy {
		t.Errorf("Accuracy differs: %v vs %v", first.Evaluation.Accuracy, second.Evaluation.Accuracy)
	}
	if !reflect.DeepEqual(first.Evaluation.Confusion, second.Evaluation.Confusion) {
		t.Error("Confusion matrices differ between identical runs")
	}
}

func TestTrain_ReloadedClassifierAgrees(t *testing.T) {
	result, err := Train(context.Background(), trainingDataset(), testOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	reloadedVec, err := vectorizer.NewFromState(result.Artifacts.Vectorizer)
	if err != nil {
		t.Fatalf("NewFromState(vectorizer): %v", err)
	}
	reloadedClf, err := knn.NewFromState(result.Artifacts.Classifier)
	if err != nil {
		t.Fatalf("NewFromState(classifier): %v", err)
	}

	norm := textproc.NewNormalizer(nil)
	for _, query := range []string{"halo kak", "cara daftar kuliah", "aturan asrama"} {
		clean := norm.Normalize(query, testOptions().NormOpts).Clean

		origVec, err := result.Vectorizer.Encode(clean)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		newVec, err := reloadedVec.Encode(clean)
		if err != nil {
			t.Fatalf("Encode (reloaded): %v", err)
		}

		origPred, err := result.Classifier.Predict(origVec)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		newPred, err := reloadedClf.Predict(newVec)
		if err != nil {
			t.Fatalf("Predict (reloaded): %v", err)
		}
		if origPred != newPred {
			t.Errorf("Query %q: predictions diverge after reload: %+v vs %+v", query, origPred, newPred)
		}
	}
}

func TestTrain_SingleSampleClassStaysInTrain(t *testing.T) {
	data := trainingDataset()
	data.Intents = append(data.Intents, dataset.Intent{
		Tag:       "kapel",
		Patterns:  []string{"jadwal ibadah kapel"},
		Responses: []string{"Ibadah kapel setiap pagi pukul 07.00."},
	})

	result, err := Train(context.Background(), data, testOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if result.Evaluation.TestSamples != 3 {
		t.Errorf("TestSamples = %d, want 3 (singleton class held in train)", result.Evaluation.TestSamples)
	}
	if result.Artifacts.Manifest.Classes != 4 {
		t.Errorf("Classes = %d, want 4", result.Artifacts.Manifest.Classes)
	}
}

func TestTrain_InvalidDataset(t *testing.T) {
	_, err := Train(context.Background(), &dataset.Dataset{}, testOptions())
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestCorpusFingerprint_MatchesTraining(t *testing.T) {
	opts := testOptions()
	result, err := Train(context.Background(), trainingDataset(), opts)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	fp, err := CorpusFingerprint(trainingDataset(), opts.VectorizerConfig, opts.NormOpts)
	if err != nil {
		t.Fatalf("CorpusFingerprint: %v", err)
	}
	if fp != result.Artifacts.Manifest.Fingerprint {
		t.Errorf("Fingerprint mismatch: %s vs %s", fp, result.Artifacts.Manifest.Fingerprint)
	}

	changed := trainingDataset()
	changed.Intents[0].Patterns = append(changed.Intents[0].Patterns, "permisi kak")
	fp2, err := CorpusFingerprint(changed, opts.VectorizerConfig, opts.NormOpts)
	if err != nil {
		t.Fatalf("CorpusFingerprint: %v", err)
	}
	if fp2 == fp {
		t.Error("Fingerprint unchanged after adding a pattern")
	}
}
