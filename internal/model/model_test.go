package model

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

func sampleArtifacts(t *testing.T) *Artifacts {
	t.Helper()

	patterns := []string{"halo", "hai", "dadah", "sampai jumpa"}
	tags := []string{"sapa", "sapa", "pamit", "pamit"}

	v, err := vectorizer.New(vectorizer.DefaultConfig())
	if err != nil {
		t.Fatalf("vectorizer.New() failed: %v", err)
	}
	if err := v.Fit(patterns); err != nil {
		t.Fatalf("Fit() failed: %v", err)
	}

	vectors := make([]vectorizer.Vector, len(patterns))
	for i, p := range patterns {
		vec, err := v.Encode(p)
		if err != nil {
			t.Fatalf("Encode() failed: %v", err)
		}
		vectors[i] = vec
	}

	c := knn.New(1)
	if err := c.Fit(vectors, tags); err != nil {
		t.Fatalf("knn.Fit() failed: %v", err)
	}

	vState, err := v.Export()
	if err != nil {
		t.Fatalf("vectorizer Export() failed: %v", err)
	}
	cState, err := c.Export()
	if err != nil {
		t.Fatalf("knn Export() failed: %v", err)
	}

	fp, err := Fingerprint(vState.Config, patterns, tags)
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}

	return &Artifacts{
		Manifest: Manifest{
			Fingerprint: fp,
			CreatedAt:   time.Now().UTC(),
			Samples:     len(patterns),
			Classes:     len(cState.Classes),
			Vocabulary:  len(vState.Terms),
		},
		Vectorizer: vState,
		Classifier: cState,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	arts := sampleArtifacts(t)

	if err := arts.Save(dir); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(dir, arts.Manifest.Fingerprint)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// The reloaded pair must reproduce bit-identical predictions.
	origVec, err := vectorizer.NewFromState(arts.Vectorizer)
	if err != nil {
		t.Fatalf("NewFromState() failed: %v", err)
	}
	loadVec, err := vectorizer.NewFromState(loaded.Vectorizer)
	if err != nil {
		t.Fatalf("NewFromState() on loaded state failed: %v", err)
	}
	origClf, err := knn.NewFromState(arts.Classifier)
	if err != nil {
		t.Fatalf("knn.NewFromState() failed: %v", err)
	}
	loadClf, err := knn.NewFromState(loaded.Classifier)
	if err != nil {
		t.Fatalf("knn.NewFromState() on loaded state failed: %v", err)
	}

	for _, query := range []string{"halo semua", "dadah ya", "apa kabar"} {
		a, err := origVec.Encode(query)
		if err != nil {
			t.Fatalf("Encode() failed: %v", err)
		}
		b, err := loadVec.Encode(query)
		if err != nil {
			t.Fatalf("Encode() on loaded vectorizer failed: %v", err)
		}

		predA, err := origClf.Predict(a)
		if err != nil {
			t.Fatalf("Predict() failed: %v", err)
		}
		predB, err := loadClf.Predict(b)
		if err != nil {
			t.Fatalf("Predict() on loaded classifier failed: %v", err)
		}
		if predA != predB {
			t.Errorf("Query %q: predictions diverge after reload: %+v vs %+v", query, predA, predB)
		}
	}
}

func TestLoad_FingerprintMismatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	arts := sampleArtifacts(t)
	if err := arts.Save(dir); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	_, err := Load(dir, "deadbeef")
	if !errors.Is(err, apperrors.ErrModelMismatch) {
		t.Errorf("Expected ErrModelMismatch, got %v", err)
	}
}

func TestLoad_MissingArtifacts(t *testing.T) {
	t.Parallel()
	if _, err := Load(t.TempDir(), ""); err == nil {
		t.Error("Expected error when loading from empty directory")
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()
	cfg := vectorizer.DefaultConfig()

	a, err := Fingerprint(cfg, []string{"halo", "dadah"}, []string{"sapa", "pamit"})
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}
	b, err := Fingerprint(cfg, []string{"dadah", "halo"}, []string{"pamit", "sapa"})
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}
	if a != b {
		t.Error("Fingerprint should not depend on sample order")
	}

	c, err := Fingerprint(cfg, []string{"halo", "dadah"}, []string{"sapa", "sapa"})
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}
	if a == c {
		t.Error("Different labelings should fingerprint differently")
	}
}

func TestFingerprint_LengthMismatch(t *testing.T) {
	t.Parallel()
	if _, err := Fingerprint(vectorizer.DefaultConfig(), []string{"halo"}, nil); err == nil {
		t.Error("Expected error for mismatched lengths")
	}
}
