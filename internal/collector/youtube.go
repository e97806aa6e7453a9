package collector

import (
	"context"

	"github.com/sells-group/intake-cli/internal/model"
)

const youtubeFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// YouTube collects entries from a channel's public Atom feed.
type YouTube struct {
	rss *RSS
}

// NewYouTube creates a collector for the given channel ID.
func NewYouTube(name, channelID string, opts Options) *YouTube {
	rss := NewRSS(name, youtubeFeedURL+channelID, opts)
	rss.sourceType = "video"
	return &YouTube{rss: rss}
}

// Name implements Collector.
func (y *YouTube) Name() string { return y.rss.Name() }

// Collect implements Collector.
func (y *YouTube) Collect(ctx context.Context) ([]model.CollectedEntry, error) {
	return y.rss.Collect(ctx)
}
