// Package handbook provides keyword search over the student handbook.
// The handbook is a pre-extracted plain-text blob split into paragraphs;
// queries are scored with BM25 and returned with a rank-based confidence.
// The dispatcher consults it as a secondary fallback when intent
// classification is not confident enough.
package handbook

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	bm25 "github.com/iwilltry42/bm25-go/bm25"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

// minParagraphRunes drops heading fragments and page numbers left over
// from PDF extraction.
const minParagraphRunes = 20

// Result is one scored handbook paragraph.
type Result struct {
	Paragraph  string
	Score      float64 // BM25 score, unbounded and query-dependent
	Rank       int     // 1-indexed rank position
	Confidence float64 // Rank-based confidence in (0, 1)
}

// Index is a BM25 index over handbook paragraphs. Safe for concurrent
// search after construction.
type Index struct {
	mu         sync.RWMutex
	okapi      *bm25.BM25Okapi
	paragraphs []string
	log        *logger.Logger
}

// LoadParagraphs reads the handbook text file and splits it into
// paragraphs on blank lines. Fragments shorter than a threshold are
// dropped.
func LoadParagraphs(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read handbook: %w", err)
	}

	blocks := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n\n")
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		p := strings.TrimSpace(block)
		if len([]rune(p)) < minParagraphRunes {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs, nil
}

// NewIndex builds a BM25 index over the paragraphs. An empty paragraph
// list yields a usable index whose searches find nothing.
func NewIndex(paragraphs []string, log *logger.Logger) (*Index, error) {
	idx := &Index{
		paragraphs: paragraphs,
		log:        log.WithModule("handbook"),
	}
	if len(paragraphs) == 0 {
		idx.log.Warn("handbook empty, fallback search disabled")
		return idx, nil
	}

	okapi, err := bm25.NewBM25Okapi(paragraphs, tokenize, 1.5, 0.75, nil)
	if err != nil {
		return nil, fmt.Errorf("build handbook index: %w", err)
	}
	idx.okapi = okapi
	idx.log.WithField("paragraphs", len(paragraphs)).Info("handbook index built")
	return idx, nil
}

// Search returns up to topN paragraphs matching the query, best first.
// A query matching nothing returns ErrNotFound.
func (idx *Index) Search(query string, topN int) ([]Result, error) {
	if idx.okapi == nil {
		return nil, fmt.Errorf("handbook index empty: %w", apperrors.ErrNotFound)
	}
	if strings.TrimSpace(query) == "" || topN < 1 {
		return nil, fmt.Errorf("empty handbook query: %w", apperrors.ErrInvalidInput)
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no searchable tokens in %q: %w", query, apperrors.ErrNotFound)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores, err := idx.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("handbook scoring: %w", err)
	}

	type scored struct {
		index int
		score float64
	}
	var hits []scored
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, scored{index: i, score: s})
		}
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no handbook match for %q: %w", query, apperrors.ErrNotFound)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].index < hits[j].index
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		rank := i + 1
		results[i] = Result{
			Paragraph:  idx.paragraphs[h.index],
			Score:      h.score,
			Rank:       rank,
			Confidence: rankConfidence(rank),
		}
	}
	return results, nil
}

// Len returns the number of indexed paragraphs.
func (idx *Index) Len() int {
	return len(idx.paragraphs)
}

// rankConfidence maps a 1-indexed rank to (0, 1). BM25 scores are
// unbounded and query-dependent, so rank is used as a proxy:
// rank 1 → 0.95, rank 5 → 0.80, rank 20 → 0.50.
func rankConfidence(rank int) float64 {
	return 1 / (1 + 0.05*float64(rank))
}

// tokenize lowercases and splits on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
