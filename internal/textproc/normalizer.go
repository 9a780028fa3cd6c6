// Package textproc cleans raw user text for the chatbot pipeline.
// The normalizer lowercases, strips URLs and symbols while keeping digits,
// expands campus slang, and detects whether the message is Indonesian or
// English. Stopword removal and stemming are opt-in post-steps.
package textproc

import (
	"regexp"
	"strings"

	"github.com/RadhiFadlillah/go-sastrawi"

	"github.com/unklab-dev/kampusbot-go/internal/stringutil"
)

// Options controls the optional normalization post-steps.
// Both default to off so short queries keep their function words.
type Options struct {
	RemoveStopwords bool
	ApplyStemming   bool
}

// Result carries the cleaned text and the detected language.
type Result struct {
	Clean    string
	Language Language
}

// Campus slang and abbreviations mapped to canonical forms.
// Substitution is token-wise on already-cleaned text.
var slangTable = map[string]string{
	"unklap":  "unklab",
	"unclab":  "unklab",
	"adven":   "advent",
	"mks":     "terima kasih",
	"makasih": "terima kasih",
	"gk":      "tidak",
	"ga":      "tidak",
	"asmet":   "asrama",
	"chapel":  "ibadah",
	"pesiar":  "izin keluar",
}

var (
	urlPattern     = regexp.MustCompile(`http\S+|www\S+`)
	emailPattern   = regexp.MustCompile(`\S+@\S+`)
	mentionPattern = regexp.MustCompile(`@\w+|#\w+`)
	// Everything except letters, digits, underscore, and whitespace
	// becomes a space. Digits stay: they matter for arithmetic and for
	// numbered references like "pasal 49".
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// Normalizer cleans raw user text. Safe for concurrent use: all state is
// set at construction and read-only afterwards.
type Normalizer struct {
	detector LanguageDetector
	stemmer  sastrawi.Stemmer
}

// NewNormalizer builds a normalizer. A nil detector falls back to the
// built-in lexical detector.
func NewNormalizer(detector LanguageDetector) *Normalizer {
	if detector == nil {
		detector = NewLexicalDetector()
	}
	return &Normalizer{
		detector: detector,
		stemmer:  sastrawi.NewStemmer(sastrawi.DefaultDictionary()),
	}
}

// Normalize cleans raw and detects its language. It never fails: empty
// input yields an empty clean text with the Indonesian default.
func (n *Normalizer) Normalize(raw string, opts Options) Result {
	clean := n.clean(raw)
	clean = expandSlang(clean)

	lang := n.detector.Detect(clean)

	if opts.RemoveStopwords {
		clean = removeStopwords(clean, lang)
	}
	if opts.ApplyStemming && lang == LanguageIndonesian {
		clean = n.stem(clean)
	}

	return Result{Clean: strings.TrimSpace(clean), Language: lang}
}

func (n *Normalizer) clean(raw string) string {
	text := strings.ToLower(raw)
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = symbolPattern.ReplaceAllString(text, " ")
	return stringutil.CollapseWhitespace(text)
}

func expandSlang(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if canonical, ok := slangTable[w]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

func removeStopwords(text string, lang Language) string {
	stop := stopwordsFor(lang)
	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stop[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func (n *Normalizer) stem(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = n.stemmer.Stem(w)
	}
	return strings.Join(words, " ")
}
