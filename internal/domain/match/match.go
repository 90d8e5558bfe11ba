package match

import "unicode/utf8"

// Match is one entry of the fused, ranked result list.
type Match struct {
	Rank       int
	Score      float64
	SliceID    string
	IncidentID string
	Domain     string
	Severity   string
	Symptoms   string
	Resolution string
	// Stale marks a slice removed between ranking and hydration.
	Stale bool
}

// Excerpt truncates text to at most maxRunes runes, appending an ellipsis when cut.
func Excerpt(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i] + "…"
		}
		n++
	}
	return text
}

// Best returns the first non-stale match, or false if none.
func Best(ms []Match) (Match, bool) {
	for _, m := range ms {
		if !m.Stale {
			return m, true
		}
	}
	return Match{}, false
}
