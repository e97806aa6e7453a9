package pipeline

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeText produces the canonical form used for matching: NFC
// normalization, lowercase, single-space whitespace.
func normalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// splitSentences splits text on terminal punctuation, keeping the
// punctuation with each sentence. Empty fragments are dropped.
func splitSentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// timelinessScore maps an entry age to a score band. Missing or
// unparsable timestamps score neutral.
func timelinessScore(published string, now time.Time) float64 {
	if published == "" {
		return 0.5
	}
	ts, err := dateparse.ParseAny(published)
	if err != nil {
		return 0.5
	}
	age := now.Sub(ts)
	switch {
	case age < 7*24*time.Hour:
		return 1.0
	case age < 30*24*time.Hour:
		return 0.8
	case age < 90*24*time.Hour:
		return 0.6
	case age < 365*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

// containsWord reports whether keyword occurs in text on word
// boundaries. Both inputs are expected pre-normalized.
func containsWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	pattern, err := wordPattern(keyword)
	if err != nil {
		return false
	}
	return pattern.MatchString(text)
}

var (
	wordPatternsMu sync.Mutex
	wordPatterns   = map[string]*regexp.Regexp{}
)

func wordPattern(keyword string) (*regexp.Regexp, error) {
	wordPatternsMu.Lock()
	defer wordPatternsMu.Unlock()
	if p, ok := wordPatterns[keyword]; ok {
		return p, nil
	}
	p, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return nil, err
	}
	wordPatterns[keyword] = p
	return p, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
