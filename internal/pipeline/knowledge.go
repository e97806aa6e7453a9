package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/intake-cli/internal/model"
)

const minKnowledgeContent = 20

// entityPatterns recognizes named entities by category. Categories are
// scanned in slice order so extraction output is deterministic.
var entityPatterns = []struct {
	category string
	patterns []*regexp.Regexp
}{
	{
		category: "technology",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\bGPT-[0-9][\w.\-]*\b`),
			regexp.MustCompile(`\b(?:Claude|Gemini|Llama|LLaMA)(?:\s[\w.\-]+)?\b`),
			regexp.MustCompile(`\b(?:[Tt]ransformers?|BERT|[Dd]iffusion models?|[Nn]eural networks?|LLMs?|RAG|[Ee]mbeddings?)\b`),
		},
	},
	{
		category: "organization",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:OpenAI|Anthropic|DeepMind|Google(?:\sResearch)?|Meta(?:\sAI)?|Microsoft|Hugging\sFace|NVIDIA|Mistral(?:\sAI)?)\b`),
		},
	},
}

// keyIndicators mark sentences carrying the load-bearing claims.
var keyIndicators = []string{
	"release", "launch", "announce", "introduce", "propose",
	"achieve", "outperform", "improve", "demonstrate",
	"state-of-the-art", "breakthrough", "novel",
}

const maxKeyPoints = 5
const minKeyPointLength = 20
const maxAutoTags = 10

// KnowledgeStage extracts entities, relations, key points, a structured
// summary, and auto-tags from the cleaned content. Entries with almost
// no content pass through untouched.
type KnowledgeStage struct{}

// NewKnowledgeStage creates the knowledge extraction stage.
func NewKnowledgeStage() *KnowledgeStage { return &KnowledgeStage{} }

func (s *KnowledgeStage) Name() string  { return "knowledge" }
func (s *KnowledgeStage) Enabled() bool { return true }

func (s *KnowledgeStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	content := e.CleanedContent
	if content == "" {
		content = e.Title
	}
	if len(content) < minKnowledgeContent {
		return Continue(), nil
	}

	text := e.Title + ". " + content
	e.Entities = extractEntities(text)
	e.Relations = extractRelations(text, e.Entities)
	e.KeyPoints = extractKeyPoints(content)
	e.StructuredSummary = structureSummary(content)
	e.AutoTags = buildAutoTags(e.Topics, e.Entities)
	return Continue(), nil
}

func extractEntities(text string) []model.Entity {
	var entities []model.Entity
	seen := map[string]bool{}
	sentences := splitSentences(text)

	for _, group := range entityPatterns {
		for _, p := range group.patterns {
			for _, name := range p.FindAllString(text, -1) {
				name = strings.TrimSpace(name)
				key := group.category + ":" + strings.ToLower(name)
				if name == "" || seen[key] {
					continue
				}
				seen[key] = true
				entities = append(entities, model.Entity{
					Type:    group.category,
					Name:    name,
					Context: sentenceContaining(sentences, name),
				})
			}
		}
	}
	return entities
}

func sentenceContaining(sentences []string, name string) string {
	for _, s := range sentences {
		if strings.Contains(s, name) {
			return s
		}
	}
	return ""
}

// extractRelations emits (subject, predicate, object) triples for
// entity pairs co-occurring in a sentence around a relation verb.
func extractRelations(text string, entities []model.Entity) []model.Relation {
	var relations []model.Relation
	for _, sentence := range splitSentences(text) {
		var inSentence []model.Entity
		for _, ent := range entities {
			if strings.Contains(sentence, ent.Name) {
				inSentence = append(inSentence, ent)
			}
		}
		if len(inSentence) < 2 {
			continue
		}

		lower := strings.ToLower(sentence)
		var predicate string
		switch {
		case strings.Contains(lower, " uses ") || strings.Contains(lower, " using "):
			predicate = "uses"
		case strings.Contains(lower, " from "):
			predicate = "from"
		default:
			continue
		}
		relations = append(relations, model.Relation{
			Subject:   inSentence[0].Name,
			Predicate: predicate,
			Object:    inSentence[1].Name,
		})
	}
	return relations
}

func extractKeyPoints(content string) []string {
	var points []string
	for _, sentence := range splitSentences(content) {
		if len(sentence) < minKeyPointLength {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, indicator := range keyIndicators {
			if strings.Contains(lower, indicator) {
				points = append(points, sentence)
				break
			}
		}
		if len(points) >= maxKeyPoints {
			break
		}
	}
	return points
}

// structureSummary splits the content's sentences into four positional
// quarters.
func structureSummary(content string) *model.StructuredSummary {
	sentences := splitSentences(content)
	n := len(sentences)
	if n == 0 {
		return nil
	}

	quarter := func(i int) string {
		lo := i * n / 4
		hi := (i + 1) * n / 4
		if i == 3 {
			hi = n
		}
		return strings.Join(sentences[lo:hi], " ")
	}
	return &model.StructuredSummary{
		Background:   quarter(0),
		Method:       quarter(1),
		Result:       quarter(2),
		Significance: quarter(3),
	}
}

// buildAutoTags merges topics with the first entity names, deduplicated
// and capped.
func buildAutoTags(topics []string, entities []model.Entity) []string {
	var tags []string
	seen := map[string]bool{}
	add := func(tag string) {
		key := strings.ToLower(tag)
		if tag == "" || seen[key] || len(tags) >= maxAutoTags {
			return
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	for _, t := range topics {
		add(t)
	}
	for i, ent := range entities {
		if i >= 5 {
			break
		}
		add(ent.Name)
	}
	return tags
}
