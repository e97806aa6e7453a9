// Package collector turns configured feed sources into normalized entries.
package collector

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
)

// Collector fetches a source and returns its entries, already validated.
// Items failing validation are skipped, not returned as errors.
type Collector interface {
	// Name identifies the source in logs and run summaries.
	Name() string

	// Collect fetches the source. A returned error means the whole
	// source failed; partial results are never returned with an error.
	Collect(ctx context.Context) ([]model.CollectedEntry, error)
}

// FromSource builds the collector for a configured source.
func FromSource(src config.Source, opts Options) (Collector, error) {
	switch src.Type {
	case "rss", "atom", "":
		if src.URL == "" {
			return nil, eris.Errorf("collector: source %q has no url", src.Name)
		}
		return NewRSS(src.Name, src.URL, opts), nil
	case "youtube":
		if src.ChannelID == "" {
			return nil, eris.Errorf("collector: youtube source %q has no channel_id", src.Name)
		}
		return NewYouTube(src.Name, src.ChannelID, opts), nil
	default:
		return nil, eris.Errorf("collector: unknown source type %q", src.Type)
	}
}

// FromSources builds collectors for every source, failing on the first
// misconfigured one.
func FromSources(sources []config.Source, opts Options) ([]Collector, error) {
	out := make([]Collector, 0, len(sources))
	for _, src := range sources {
		c, err := FromSource(src, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
