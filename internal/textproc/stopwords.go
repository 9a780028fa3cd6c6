package textproc

// Stopword lists for the optional removal step. Removal is off by default
// for serving: interrogatives like "apa" and "dimana" carry intent signal
// on short queries.
var (
	indonesianStopwords = makeSet(
		"yang", "dan", "di", "dari", "ke", "untuk", "pada", "dengan",
		"adalah", "ini", "itu", "atau", "juga", "karena", "jika",
		"sebagai", "oleh", "dalam", "akan", "telah", "sudah", "bisa",
		"ada", "tersebut", "para", "saat", "agar", "hingga", "antara",
		"secara", "masih", "hanya", "sangat", "lebih", "tapi", "tetapi",
		"namun", "seperti", "sehingga", "kemudian", "setelah", "sebelum",
	)
	englishStopwords = makeSet(
		"the", "is", "are", "was", "were", "and", "or", "but", "in",
		"on", "at", "to", "for", "of", "with", "a", "an", "be", "been",
		"being", "have", "has", "had", "do", "does", "did", "will",
		"would", "should", "could", "this", "that", "these", "those",
		"it", "its", "as", "by", "from", "not", "so", "than", "then",
		"there", "their", "they", "them",
	)
)

func stopwordsFor(lang Language) map[string]struct{} {
	if lang == LanguageIndonesian {
		return indonesianStopwords
	}
	return englishStopwords
}
