package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/resilience"
)

const maxSummaryBytes = 10000

// Options tunes collector fetch behavior.
type Options struct {
	Timeout    time.Duration
	Retries    int
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

// RSS collects entries from an RSS or Atom feed URL.
type RSS struct {
	name       string
	url        string
	sourceType string
	opts       Options
	parser     *gofeed.Parser
}

// NewRSS creates a collector for the given feed URL.
func NewRSS(name, url string, opts Options) *RSS {
	opts = opts.withDefaults()
	p := gofeed.NewParser()
	p.Client = opts.HTTPClient
	return &RSS{name: name, url: url, sourceType: "blog", opts: opts, parser: p}
}

// Name implements Collector.
func (r *RSS) Name() string { return r.name }

// Collect implements Collector. The feed fetch is retried on transient
// network and server errors; individual invalid items are skipped with
// a debug log.
func (r *RSS) Collect(ctx context.Context) ([]model.CollectedEntry, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts: r.opts.Retries + 1,
		OnRetry:     resilience.RetryLogger("feed", r.name),
	}
	feed, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*gofeed.Feed, error) {
		return r.parser.ParseURLWithContext(r.url, ctx)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "collector: fetch feed %s", r.name)
	}

	entries := make([]model.CollectedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e, ok := r.fromItem(item)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	zap.L().Debug("collected feed",
		zap.String("source", r.name),
		zap.Int("items", len(feed.Items)),
		zap.Int("accepted", len(entries)),
	)
	return entries, nil
}

func (r *RSS) fromItem(item *gofeed.Item) (model.CollectedEntry, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	if len(summary) > maxSummaryBytes {
		summary = summary[:maxSummaryBytes]
	}

	var published string
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	e := model.CollectedEntry{
		Title:      item.Title,
		Link:       link,
		Summary:    summary,
		Published:  published,
		SourceName: r.name,
		SourceType: r.sourceType,
	}
	if err := e.Validate(); err != nil {
		zap.L().Debug("skipping invalid feed item",
			zap.String("source", r.name),
			zap.String("link", link),
			zap.Error(err),
		)
		return model.CollectedEntry{}, false
	}
	return e, true
}
