// Package dataset loads and validates the intent dataset used to train
// and serve the chatbot. The dataset is a JSON document with a single
// "intents" array; each intent carries a unique tag, the user phrasings
// that belong to it, and the canned responses the bot may answer with.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/sliceutil"
)

// Intent groups example user phrasings under a tag with its responses.
type Intent struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// Dataset is the parsed intent file.
type Dataset struct {
	Intents []Intent `json:"intents"`
}

// Load reads and validates the intent dataset at path.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewDatasetError(path, err)
	}

	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, apperrors.NewDatasetError(path, fmt.Errorf("parse: %w", err))
	}

	if err := ds.Validate(); err != nil {
		return nil, apperrors.NewDatasetError(path, err)
	}

	return &ds, nil
}

// Validate checks structural requirements: at least one intent, unique
// non-empty tags, and at least one pattern and one response per intent.
func (d *Dataset) Validate() error {
	if len(d.Intents) == 0 {
		return fmt.Errorf("no intents defined: %w", apperrors.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(d.Intents))
	for i, intent := range d.Intents {
		if intent.Tag == "" {
			return fmt.Errorf("intent %d has empty tag: %w", i, apperrors.ErrInvalidInput)
		}
		if seen[intent.Tag] {
			return fmt.Errorf("duplicate tag %q: %w", intent.Tag, apperrors.ErrInvalidInput)
		}
		seen[intent.Tag] = true

		if len(intent.Patterns) == 0 {
			return fmt.Errorf("intent %q has no patterns: %w", intent.Tag, apperrors.ErrInvalidInput)
		}
		if len(intent.Responses) == 0 {
			return fmt.Errorf("intent %q has no responses: %w", intent.Tag, apperrors.ErrInvalidInput)
		}
		for j, p := range intent.Patterns {
			if p == "" {
				return fmt.Errorf("intent %q pattern %d is empty: %w", intent.Tag, j, apperrors.ErrInvalidInput)
			}
		}
	}
	return nil
}

// TrainingSamples flattens the dataset into parallel pattern and tag
// slices, in file order. Duplicate patterns within an intent are dropped.
func (d *Dataset) TrainingSamples() (patterns []string, tags []string) {
	for _, intent := range d.Intents {
		unique := sliceutil.Deduplicate(intent.Patterns, func(s string) string { return s })
		for _, p := range unique {
			patterns = append(patterns, p)
			tags = append(tags, intent.Tag)
		}
	}
	return patterns, tags
}

// ResponsesFor returns the responses registered for tag.
// The second return value is false when the tag is unknown.
func (d *Dataset) ResponsesFor(tag string) ([]string, bool) {
	for _, intent := range d.Intents {
		if intent.Tag == tag {
			return intent.Responses, true
		}
	}
	return nil, false
}

// Tags returns every intent tag in file order.
func (d *Dataset) Tags() []string {
	tags := make([]string, 0, len(d.Intents))
	for _, intent := range d.Intents {
		tags = append(tags, intent.Tag)
	}
	return tags
}
