package store

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/pkg/notion"
)

// Notion limits a rich text block to 2000 characters.
const notionTextLimit = 2000

// NotionStore implements Store against a Notion database. The schema
// lives in Notion itself, so Migrate only verifies the database is
// reachable.
type NotionStore struct {
	client notion.Client
	dbID   string
}

// NewNotion creates a NotionStore writing to the given entry database.
func NewNotion(client notion.Client, dbID string) *NotionStore {
	return &NotionStore{client: client, dbID: dbID}
}

func (s *NotionStore) Migrate(ctx context.Context) error {
	_, err := s.client.QueryDatabase(ctx, s.dbID, &notionapi.DatabaseQueryRequest{PageSize: 1})
	return eris.Wrap(err, "notion store: check database")
}

func (s *NotionStore) Close() error { return nil }

func (s *NotionStore) Exists(ctx context.Context, link string) (bool, error) {
	page, err := notion.FindByLink(ctx, s.client, s.dbID, link)
	if err != nil {
		return false, eris.Wrap(err, "notion store: exists")
	}
	return page != nil, nil
}

func (s *NotionStore) Save(ctx context.Context, e *model.ProcessedEntry) (bool, error) {
	exists, err := s.Exists(ctx, e.Link)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{DatabaseID: notionapi.DatabaseID(s.dbID)},
		Properties: s.pageProperties(e),
	})
	if err != nil {
		return false, eris.Wrap(err, "notion store: create page")
	}
	return true, nil
}

func (s *NotionStore) List(ctx context.Context, filter EntryFilter) ([]model.ProcessedEntry, error) {
	req := &notionapi.DatabaseQueryRequest{}
	if filter.Priority != "" {
		req.Filter = notionapi.PropertyFilter{
			Property: "Priority",
			Select:   &notionapi.SelectFilterCondition{Equals: string(filter.Priority)},
		}
	}

	pages, err := notion.QueryAll(ctx, s.client, s.dbID, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion store: list")
	}

	var entries []model.ProcessedEntry
	for _, p := range pages {
		e := entryFromPage(p)
		if filter.Topic != "" && !containsString(e.Topics, filter.Topic) {
			continue
		}
		entries = append(entries, e)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *NotionStore) pageProperties(e *model.ProcessedEntry) notionapi.Properties {
	priority := e.FinalPriority
	if priority == "" {
		priority = e.Priority
	}

	props := notionapi.Properties{
		"Title":    notionapi.TitleProperty{Title: richText(e.Title)},
		"Link":     notionapi.URLProperty{URL: e.Link},
		"Priority": notionapi.SelectProperty{Select: notionapi.Option{Name: string(priority)}},
		"Score":    notionapi.NumberProperty{Number: e.PriorityScore},
		"Source":   notionapi.RichTextProperty{RichText: richText(e.SourceName)},
	}
	if summary := e.CleanedContent; summary != "" {
		if len(summary) > notionTextLimit {
			summary = summary[:notionTextLimit]
		}
		props["Summary"] = notionapi.RichTextProperty{RichText: richText(summary)}
	}
	if len(e.Topics) > 0 {
		opts := make([]notionapi.Option, 0, len(e.Topics))
		for _, t := range e.Topics {
			opts = append(opts, notionapi.Option{Name: t})
		}
		props["Topics"] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}
	if e.QualityGrade != "" {
		props["Grade"] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(e.QualityGrade)}}
	}
	if e.VerificationStatus != "" {
		props["Status"] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(e.VerificationStatus)}}
	}
	if ts, err := time.Parse(time.RFC3339, e.Published); err == nil {
		d := notionapi.Date(ts)
		props["Published"] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}
	return props
}

// entryFromPage reconstructs the filterable subset of an entry from its
// Notion page. The full payload is not round-tripped through Notion.
func entryFromPage(p notionapi.Page) model.ProcessedEntry {
	var e model.ProcessedEntry
	for name, prop := range p.Properties {
		switch v := prop.(type) {
		case *notionapi.TitleProperty:
			e.Title = plainText(v.Title)
		case *notionapi.URLProperty:
			e.Link = v.URL
		case *notionapi.SelectProperty:
			switch name {
			case "Priority":
				e.FinalPriority = model.Priority(v.Select.Name)
				e.Priority = e.FinalPriority
			case "Grade":
				e.QualityGrade = model.Grade(v.Select.Name)
			case "Status":
				e.VerificationStatus = model.VerificationStatus(v.Select.Name)
			}
		case *notionapi.MultiSelectProperty:
			for _, opt := range v.MultiSelect {
				e.Topics = append(e.Topics, opt.Name)
			}
		case *notionapi.NumberProperty:
			e.PriorityScore = v.Number
		case *notionapi.RichTextProperty:
			switch name {
			case "Summary":
				e.CleanedContent = plainText(v.RichText)
			case "Source":
				e.SourceName = plainText(v.RichText)
			}
		case *notionapi.DateProperty:
			if v.Date != nil && v.Date.Start != nil {
				e.Published = time.Time(*v.Date.Start).UTC().Format(time.RFC3339)
			}
		}
	}
	return e
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}

func plainText(rt []notionapi.RichText) string {
	var out string
	for _, t := range rt {
		if t.PlainText != "" {
			out += t.PlainText
		} else if t.Text != nil {
			out += t.Text.Content
		}
	}
	return out
}

func containsString(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
