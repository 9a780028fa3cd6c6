package textproc

import "strings"

// Language identifies the detected language of a user message.
type Language string

// Supported languages.
const (
	LanguageIndonesian Language = "id"
	LanguageEnglish    Language = "en"
)

// LanguageDetector classifies a cleaned text as Indonesian or English.
type LanguageDetector interface {
	Detect(text string) Language
}

// Common function words used for lexical overlap voting. The lists are
// deliberately small and closed; this is a heuristic, not a statistical
// classifier.
var (
	indonesianMarkers = makeSet(
		"yang", "dan", "di", "dari", "ke", "untuk", "pada", "dengan",
		"adalah", "ini", "itu", "saya", "kamu", "apa", "tidak",
	)
	englishMarkers = makeSet(
		"the", "is", "are", "was", "were", "and", "or", "but",
		"in", "on", "at", "to", "for", "of", "with", "a", "an",
	)
)

// LexicalDetector votes by counting overlap between the text's tokens and
// fixed Indonesian/English function word sets. Ties favor Indonesian since
// the deployment audience is Indonesian-first.
type LexicalDetector struct{}

// NewLexicalDetector returns a detector using the built-in marker sets.
func NewLexicalDetector() *LexicalDetector {
	return &LexicalDetector{}
}

// Detect implements LanguageDetector.
func (d *LexicalDetector) Detect(text string) Language {
	words := makeSet(strings.Fields(strings.ToLower(text))...)

	idCount := 0
	for w := range words {
		if _, ok := indonesianMarkers[w]; ok {
			idCount++
		}
	}
	enCount := 0
	for w := range words {
		if _, ok := englishMarkers[w]; ok {
			enCount++
		}
	}

	if idCount >= enCount {
		return LanguageIndonesian
	}
	return LanguageEnglish
}

func makeSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
