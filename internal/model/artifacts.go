// Package model persists trained chatbot artifacts: the fitted
// vectorizer state, the fitted classifier state, and a manifest
// fingerprinting the dataset they were built from. The two learned
// states only make sense as a matched pair; the manifest fingerprint is
// how mismatches are caught at load time instead of surfacing as
// garbage predictions.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

// Artifact file names inside the model directory.
const (
	ManifestFile   = "manifest.json"
	VectorizerFile = "vectorizer.json.zst"
	ClassifierFile = "classifier.json.zst"
)

// Manifest describes a trained artifact set.
type Manifest struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	Samples     int       `json:"samples"`
	Classes     int       `json:"classes"`
	Vocabulary  int       `json:"vocabulary"`
}

// Artifacts bundles everything the serving path loads.
type Artifacts struct {
	Manifest   Manifest
	Vectorizer vectorizer.State
	Classifier knn.State
}

// Save writes the artifact set into dir, creating it if needed.
func (a *Artifacts) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	manifest, err := json.MarshalIndent(a.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifest, 0o640); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := writeCompressed(filepath.Join(dir, VectorizerFile), a.Vectorizer); err != nil {
		return err
	}
	return writeCompressed(filepath.Join(dir, ClassifierFile), a.Classifier)
}

// Load reads the artifact set from dir. If expectedFingerprint is
// non-empty and differs from the manifest, ErrModelMismatch is returned
// with guidance to retrain.
func Load(dir, expectedFingerprint string) (*Artifacts, error) {
	manifestRaw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest (run the train command first): %w", err)
	}

	var a Artifacts
	if err := json.Unmarshal(manifestRaw, &a.Manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if expectedFingerprint != "" && a.Manifest.Fingerprint != expectedFingerprint {
		return nil, fmt.Errorf("artifacts in %s were trained on a different dataset, retrain to refresh: %w",
			dir, apperrors.ErrModelMismatch)
	}

	if err := readCompressed(filepath.Join(dir, VectorizerFile), &a.Vectorizer); err != nil {
		return nil, err
	}
	if err := readCompressed(filepath.Join(dir, ClassifierFile), &a.Classifier); err != nil {
		return nil, err
	}
	return &a, nil
}

func writeCompressed(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return fmt.Errorf("compress %s: %w", filepath.Base(path), err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readCompressed(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s (run the train command first): %w", filepath.Base(path), err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
