// Package vectorizer turns normalized text into sparse TF-IDF feature
// vectors over character n-grams. Character-level n-grams (not tokens)
// keep the encoder robust to slang and typos in mixed Indonesian/English
// input. The vectorizer is fit once over the training corpus and is
// immutable afterwards, so it is safe for concurrent encoding.
package vectorizer

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
)

// Config holds the encoding hyperparameters. A fitted vectorizer and the
// classifier trained on its output only make sense as a matched pair, so
// the config is persisted alongside the learned state.
type Config struct {
	NGramMin       int      `json:"ngram_min"`
	NGramMax       int      `json:"ngram_max"`
	MaxFeatures    int      `json:"max_features"`
	MinDocFreq     int      `json:"min_doc_freq"`
	MaxDocFraction float64  `json:"max_doc_fraction"`
	Stopwords      []string `json:"stopwords,omitempty"`
}

// DefaultConfig mirrors the settings the intent model is trained with.
func DefaultConfig() Config {
	return Config{
		NGramMin:       1,
		NGramMax:       7,
		MaxFeatures:    2500,
		MinDocFreq:     1,
		MaxDocFraction: 0.8,
	}
}

// Validate checks the hyperparameters for internal consistency.
func (c Config) Validate() error {
	if c.NGramMin < 1 {
		return fmt.Errorf("ngram min must be >= 1, got %d: %w", c.NGramMin, apperrors.ErrInvalidInput)
	}
	if c.NGramMax < c.NGramMin {
		return fmt.Errorf("ngram max %d < min %d: %w", c.NGramMax, c.NGramMin, apperrors.ErrInvalidInput)
	}
	if c.MaxFeatures < 1 {
		return fmt.Errorf("max features must be >= 1, got %d: %w", c.MaxFeatures, apperrors.ErrInvalidInput)
	}
	if c.MinDocFreq < 1 {
		return fmt.Errorf("min doc freq must be >= 1, got %d: %w", c.MinDocFreq, apperrors.ErrInvalidInput)
	}
	if c.MaxDocFraction <= 0 || c.MaxDocFraction > 1 {
		return fmt.Errorf("max doc fraction must be in (0, 1], got %v: %w", c.MaxDocFraction, apperrors.ErrInvalidInput)
	}
	return nil
}

// State is the serializable fitted state. Terms are stored in vocabulary
// index order so a reloaded vectorizer reproduces identical vectors.
type State struct {
	Config Config    `json:"config"`
	Terms  []string  `json:"terms"`
	IDF    []float64 `json:"idf"`
}

// Vectorizer encodes text as L2-normalized sublinear TF-IDF vectors.
type Vectorizer struct {
	cfg    Config
	vocab  map[string]int
	idf    []float64
	fitted bool
}

// New creates an unfitted vectorizer.
func New(cfg Config) (*Vectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Vectorizer{cfg: cfg}, nil
}

// NewFromState restores a fitted vectorizer from persisted state.
func NewFromState(state State) (*Vectorizer, error) {
	if err := state.Config.Validate(); err != nil {
		return nil, err
	}
	if len(state.Terms) != len(state.IDF) {
		return nil, fmt.Errorf("terms/idf length mismatch (%d vs %d): %w",
			len(state.Terms), len(state.IDF), apperrors.ErrModelMismatch)
	}
	if len(state.Terms) == 0 {
		return nil, fmt.Errorf("empty vocabulary: %w", apperrors.ErrModelMismatch)
	}

	vocab := make(map[string]int, len(state.Terms))
	for i, term := range state.Terms {
		vocab[term] = i
	}
	return &Vectorizer{
		cfg:    state.Config,
		vocab:  vocab,
		idf:    state.IDF,
		fitted: true,
	}, nil
}

// Fit learns the vocabulary and IDF weights from the training corpus.
func (v *Vectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("fit vectorizer: %w", apperrors.ErrEmptyTrainingSet)
	}

	stop := make(map[string]struct{}, len(v.cfg.Stopwords))
	for _, w := range v.cfg.Stopwords {
		stop[w] = struct{}{}
	}

	// Document frequency per n-gram.
	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, gram := range v.ngrams(text) {
			if _, skip := stop[gram]; skip {
				continue
			}
			seen[gram] = struct{}{}
		}
		for gram := range seen {
			df[gram]++
		}
	}

	nDocs := len(texts)
	maxDF := int(v.cfg.MaxDocFraction * float64(nDocs))
	if maxDF < v.cfg.MinDocFreq {
		maxDF = v.cfg.MinDocFreq
	}

	type candidate struct {
		term string
		df   int
	}
	candidates := make([]candidate, 0, len(df))
	for term, count := range df {
		if count < v.cfg.MinDocFreq || count > maxDF {
			continue
		}
		candidates = append(candidates, candidate{term: term, df: count})
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no terms survive document frequency bounds: %w", apperrors.ErrEmptyTrainingSet)
	}

	// Keep the most frequent terms; ties break lexicographically so the
	// vocabulary is reproducible across runs.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].df != candidates[j].df {
			return candidates[i].df > candidates[j].df
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > v.cfg.MaxFeatures {
		candidates = candidates[:v.cfg.MaxFeatures]
	}

	// Index terms in lexicographic order.
	terms := make([]string, len(candidates))
	dfByTerm := make(map[string]int, len(candidates))
	for i, c := range candidates {
		terms[i] = c.term
		dfByTerm[c.term] = c.df
	}
	sort.Strings(terms)

	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
		// Smoothed IDF: acts as if one extra document contains every term.
		v.idf[i] = math.Log(float64(1+nDocs)/float64(1+dfByTerm[term])) + 1
	}
	v.fitted = true
	return nil
}

// Encode converts text into an L2-normalized TF-IDF vector. N-grams
// outside the fitted vocabulary contribute nothing; a fully
// out-of-vocabulary text yields the zero vector.
func (v *Vectorizer) Encode(text string) (Vector, error) {
	if !v.fitted {
		return nil, fmt.Errorf("encode %q: %w", text, apperrors.ErrNotFitted)
	}

	tf := make(map[int]int)
	for _, gram := range v.ngrams(text) {
		if idx, ok := v.vocab[gram]; ok {
			tf[idx]++
		}
	}
	if len(tf) == 0 {
		return Vector{}, nil
	}

	vec := make(Vector, 0, len(tf))
	for idx, count := range tf {
		weight := (1 + math.Log(float64(count))) * v.idf[idx]
		vec = append(vec, Entry{Index: idx, Value: weight})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].Index < vec[j].Index })

	norm := vec.Norm()
	for i := range vec {
		vec[i].Value /= norm
	}
	return vec, nil
}

// Export returns the serializable fitted state.
func (v *Vectorizer) Export() (State, error) {
	if !v.fitted {
		return State{}, fmt.Errorf("export vectorizer: %w", apperrors.ErrNotFitted)
	}
	terms := make([]string, len(v.vocab))
	for term, idx := range v.vocab {
		terms[idx] = term
	}
	idf := make([]float64, len(v.idf))
	copy(idf, v.idf)
	return State{Config: v.cfg, Terms: terms, IDF: idf}, nil
}

// VocabularySize returns the number of fitted terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocab)
}

// ngrams extracts character n-grams over the space-padded string, so
// grams may span word boundaries.
func (v *Vectorizer) ngrams(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(" " + text + " ")

	var grams []string
	for n := v.cfg.NGramMin; n <= v.cfg.NGramMax; n++ {
		if n > len(runes) {
			break
		}
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}
