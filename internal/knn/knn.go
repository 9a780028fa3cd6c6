// Package knn implements a k-nearest-neighbor intent classifier over
// sparse TF-IDF vectors. Neighbors vote with inverse-distance weights
// under cosine distance; labels are stored as dense integer codes and
// decoded back to their string tags on output. A fitted classifier is
// immutable and safe for concurrent prediction.
package knn

import (
	"fmt"
	"sort"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

// exactMatchEpsilon treats cosine distances below this as an exact hit.
const exactMatchEpsilon = 1e-12

// Prediction is the classifier output for one query vector.
type Prediction struct {
	Tag        string
	Confidence float64
}

// State is the serializable fitted state. Samples and labels are stored
// in training order so a reloaded classifier reproduces bit-identical
// predictions.
type State struct {
	K       int                 `json:"k"`
	Classes []string            `json:"classes"`
	Labels  []int               `json:"labels"`
	Samples []vectorizer.Vector `json:"samples"`
}

// Classifier is a fitted (or yet-unfitted) k-NN model.
type Classifier struct {
	k       int
	classes []string            // sorted unique tags; index is the dense label code
	labels  []int               // per-sample class code
	samples []vectorizer.Vector // per-sample feature vector
	fitted  bool
}

// New creates an unfitted classifier. k below 1 is coerced to 1.
func New(k int) *Classifier {
	if k < 1 {
		k = 1
	}
	return &Classifier{k: k}
}

// NewFromState restores a fitted classifier from persisted state.
func NewFromState(state State) (*Classifier, error) {
	if state.K < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d: %w", state.K, apperrors.ErrModelMismatch)
	}
	if len(state.Samples) != len(state.Labels) {
		return nil, fmt.Errorf("samples/labels length mismatch (%d vs %d): %w",
			len(state.Samples), len(state.Labels), apperrors.ErrModelMismatch)
	}
	if len(state.Samples) == 0 {
		return nil, fmt.Errorf("no training samples: %w", apperrors.ErrModelMismatch)
	}
	for i, code := range state.Labels {
		if code < 0 || code >= len(state.Classes) {
			return nil, fmt.Errorf("sample %d has label code %d outside class table: %w",
				i, code, apperrors.ErrModelMismatch)
		}
	}
	return &Classifier{
		k:       state.K,
		classes: state.Classes,
		labels:  state.Labels,
		samples: state.Samples,
		fitted:  true,
	}, nil
}

// Fit stores the training vectors and builds the label encoding.
func (c *Classifier) Fit(vectors []vectorizer.Vector, tags []string) error {
	if len(vectors) == 0 {
		return fmt.Errorf("fit classifier: %w", apperrors.ErrEmptyTrainingSet)
	}
	if len(vectors) != len(tags) {
		return fmt.Errorf("vectors/tags length mismatch (%d vs %d): %w",
			len(vectors), len(tags), apperrors.ErrInvalidInput)
	}

	// Dense label encoding over sorted unique tags.
	unique := make(map[string]bool, len(tags))
	for _, tag := range tags {
		unique[tag] = true
	}
	classes := make([]string, 0, len(unique))
	for tag := range unique {
		classes = append(classes, tag)
	}
	sort.Strings(classes)

	codeByTag := make(map[string]int, len(classes))
	for i, tag := range classes {
		codeByTag[tag] = i
	}

	labels := make([]int, len(tags))
	for i, tag := range tags {
		labels[i] = codeByTag[tag]
	}

	c.classes = classes
	c.labels = labels
	c.samples = vectors
	c.fitted = true
	return nil
}

// Predict returns the best-matching tag with a confidence score: the
// winning class's share of the inverse-distance weighted vote. If the
// query shares nothing with any training sample, confidence is 0 so the
// caller can fall back.
func (c *Classifier) Predict(vec vectorizer.Vector) (Prediction, error) {
	if !c.fitted {
		return Prediction{}, fmt.Errorf("predict: %w", apperrors.ErrNotFitted)
	}

	type neighbor struct {
		index    int
		distance float64
	}
	neighbors := make([]neighbor, len(c.samples))
	for i, sample := range c.samples {
		neighbors[i] = neighbor{index: i, distance: 1 - vec.CosineSimilarity(sample)}
	}
	// Stable ordering: distance, then training index.
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].distance != neighbors[j].distance {
			return neighbors[i].distance < neighbors[j].distance
		}
		return neighbors[i].index < neighbors[j].index
	})

	k := c.k
	if k > len(neighbors) {
		k = len(neighbors)
	}
	nearest := neighbors[:k]

	if nearest[0].distance >= 1 {
		// No overlap with any training sample (zero or orthogonal query).
		return Prediction{Tag: c.classes[c.labels[nearest[0].index]], Confidence: 0}, nil
	}

	// Exact matches dominate: if any neighbor is at distance zero, only
	// those vote, each with unit weight.
	votes := make(map[int]float64)
	var total float64
	if nearest[0].distance < exactMatchEpsilon {
		for _, n := range nearest {
			if n.distance < exactMatchEpsilon {
				votes[c.labels[n.index]]++
				total++
			}
		}
	} else {
		for _, n := range nearest {
			w := 1 / n.distance
			votes[c.labels[n.index]] += w
			total += w
		}
	}

	bestCode, bestVote := -1, -1.0
	for code, vote := range votes {
		if vote > bestVote || (vote == bestVote && code < bestCode) {
			bestCode, bestVote = code, vote
		}
	}

	return Prediction{
		Tag:        c.classes[bestCode],
		Confidence: bestVote / total,
	}, nil
}

// Export returns the serializable fitted state.
func (c *Classifier) Export() (State, error) {
	if !c.fitted {
		return State{}, fmt.Errorf("export classifier: %w", apperrors.ErrNotFitted)
	}
	return State{
		K:       c.k,
		Classes: c.classes,
		Labels:  c.labels,
		Samples: c.samples,
	}, nil
}

// Classes returns the sorted tag vocabulary.
func (c *Classifier) Classes() []string {
	return c.classes
}
