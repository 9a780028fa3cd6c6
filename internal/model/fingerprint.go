package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

// Fingerprint derives a stable hash from the encoder configuration and
// the training corpus. Artifacts carry it so a serving process can
// refuse to pair a classifier with a dataset it was not trained on.
func Fingerprint(cfg vectorizer.Config, patterns, tags []string) (string, error) {
	if len(patterns) != len(tags) {
		return "", fmt.Errorf("patterns/tags length mismatch (%d vs %d)", len(patterns), len(tags))
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	// Sort samples so the hash does not depend on dataset file order.
	samples := make([]string, len(patterns))
	for i := range patterns {
		samples[i] = tags[i] + "\x00" + patterns[i]
	}
	sort.Strings(samples)

	h := sha256.New()
	h.Write(cfgJSON)
	for _, s := range samples {
		h.Write([]byte{0x1e})
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
