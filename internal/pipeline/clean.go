package pipeline

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
)

// CleanStage strips HTML from the collected summary and collapses
// whitespace. The full cleaned text becomes CleanedContent; a condensed
// form replaces the raw Summary. It also materializes the normalized
// text every later matcher uses.
type CleanStage struct {
	maxLength int
}

// NewCleanStage creates the clean stage with the configured summary cap.
func NewCleanStage(maxLength int) *CleanStage {
	if maxLength <= 0 {
		maxLength = 500
	}
	return &CleanStage{maxLength: maxLength}
}

func (s *CleanStage) Name() string  { return "clean" }
func (s *CleanStage) Enabled() bool { return true }

func (s *CleanStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	cleaned, err := stripHTML(e.Summary)
	if err != nil {
		return Continue(), eris.Wrap(err, "pipeline: strip html")
	}
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	e.CleanedContent = cleaned
	e.Summary = condense(cleaned, s.maxLength)
	e.NormalizedText = normalizeText(e.Title + " " + cleaned)
	return Continue(), nil
}

// stripHTML extracts the text content of an HTML fragment, decoding
// entities along the way. Plain text passes through unchanged.
func stripHTML(s string) (string, error) {
	if !strings.ContainsAny(s, "<&") {
		return s, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// condense keeps at most three sentences, then hard-truncates at max
// with an ellipsis marker.
func condense(text string, max int) string {
	sentences := splitSentences(text)
	if len(sentences) > 3 {
		text = strings.Join(sentences[:3], " ")
	}
	if len(text) > max {
		text = text[:max] + "..."
	}
	return text
}
