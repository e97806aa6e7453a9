// Package model defines the entry types flowing through the intake pipeline.
package model

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Priority is the triage tier assigned to an entry.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the three known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Grade is the letter grade derived from the overall quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// VerificationStatus classifies how trustworthy an entry's source looks.
type VerificationStatus string

const (
	StatusVerified   VerificationStatus = "verified"
	StatusUnverified VerificationStatus = "unverified"
	StatusSuspicious VerificationStatus = "suspicious"
)

// ProcessingMethod records which classification path produced the result.
type ProcessingMethod string

const (
	MethodKeyword ProcessingMethod = "keyword"
	MethodLLM     ProcessingMethod = "llm"
	MethodHybrid  ProcessingMethod = "hybrid"
)

const (
	maxTitleLen   = 200
	maxSummaryLen = 10000
)

// CollectedEntry is the normalized output of any collector. It is created
// once and never mutated; the pipeline lifts it into a ProcessedEntry.
type CollectedEntry struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	Summary    string `json:"summary,omitempty"`
	Published  string `json:"published,omitempty"` // ISO-8601; empty means not reported
	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type,omitempty"` // blog, paper, video, ...
}

// Validate checks the collector contract: non-empty bounded title and an
// absolute HTTP/HTTPS link. Entries failing this must never reach the
// pipeline.
func (e CollectedEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return eris.New("model: entry title is empty")
	}
	if len(e.Title) > maxTitleLen {
		return eris.Errorf("model: entry title exceeds %d chars", maxTitleLen)
	}
	if len(e.Summary) > maxSummaryLen {
		return eris.Errorf("model: entry summary exceeds %d chars", maxSummaryLen)
	}
	if !ValidLink(e.Link) {
		return eris.Errorf("model: entry link %q is not an absolute http(s) URL", e.Link)
	}
	return nil
}

// ValidLink reports whether link is a syntactically valid absolute
// HTTP or HTTPS URL with a host.
func ValidLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Domain returns the lowercased host of the entry link without a leading
// "www." prefix, or "" if the link does not parse.
func (e CollectedEntry) Domain() string {
	u, err := url.Parse(e.Link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// QualityScores holds the four quality sub-scores, each in [0,1].
type QualityScores struct {
	Credibility  float64 `json:"credibility"`
	Completeness float64 `json:"completeness"`
	Relevance    float64 `json:"relevance"`
	Timeliness   float64 `json:"timeliness"`
}

// Entity is a recognized named entity with its surrounding context.
type Entity struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Context string `json:"context,omitempty"`
}

// Relation is a (subject, predicate, object) triple extracted from content.
type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// StructuredSummary splits content into four positional sections.
type StructuredSummary struct {
	Background   string `json:"background"`
	Method       string `json:"method"`
	Result       string `json:"result"`
	Significance string `json:"significance"`
}

// ProcessedEntry is the accumulated result of every pipeline stage. Each
// stage owns one field group below and must not touch fields it does not
// own. The entry flows through the pipeline by pointer and is handed to
// storage once; no state is retained across invocations.
type ProcessedEntry struct {
	CollectedEntry

	// Classification (keyword stage).
	Topics           []string         `json:"topics"`
	Priority         Priority         `json:"priority"`
	ProcessingMethod ProcessingMethod `json:"processing_method"`

	// Cleaning.
	CleanedContent string `json:"cleaned_content,omitempty"`
	NormalizedText string `json:"normalized_text,omitempty"`

	// Quality assessment.
	QualityScores  QualityScores `json:"quality_scores"`
	QualityGrade   Grade         `json:"quality_grade,omitempty"`
	OverallQuality float64       `json:"overall_quality"`

	// Semantic deduplication.
	IsSemanticDuplicate bool     `json:"is_semantic_duplicate"`
	DuplicateOf         string   `json:"duplicate_of,omitempty"`
	SimilarityScore     *float64 `json:"similarity_score,omitempty"`

	// Source verification.
	VerificationStatus   VerificationStatus `json:"verification_status,omitempty"`
	VerificationScore    float64            `json:"verification_score"`
	VerificationWarnings []string           `json:"verification_warnings,omitempty"`

	// Knowledge extraction.
	Entities          []Entity           `json:"entities,omitempty"`
	Relations         []Relation         `json:"relations,omitempty"`
	KeyPoints         []string           `json:"key_points,omitempty"`
	StructuredSummary *StructuredSummary `json:"structured_summary,omitempty"`
	AutoTags          []string           `json:"auto_tags,omitempty"`

	// Priority ranking.
	FinalPriority Priority `json:"final_priority,omitempty"`
	PriorityScore float64  `json:"priority_score"`
	RankingReason string   `json:"ranking_reason,omitempty"`

	// LLM enrichment. Nil/zero unless the LLM stage ran and succeeded.
	SummaryLLM  *string           `json:"summary_llm,omitempty"`
	Translation map[string]string `json:"translation,omitempty"`
	TopicsLLM   []string          `json:"topics_llm,omitempty"`
	PriorityLLM *Priority         `json:"priority_llm,omitempty"`
	LLMCost     float64           `json:"llm_cost,omitempty"`
	LLMTokens   int               `json:"llm_tokens,omitempty"`
}

// FromCollected lifts a CollectedEntry into a ProcessedEntry with the
// documented defaults (Low priority, keyword processing method).
func FromCollected(e CollectedEntry) *ProcessedEntry {
	return &ProcessedEntry{
		CollectedEntry:   e,
		Priority:         PriorityLow,
		ProcessingMethod: MethodKeyword,
	}
}
