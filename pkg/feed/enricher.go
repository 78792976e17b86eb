// Package feed fills missing episode download links from the podcast's
// RSS feed.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/httpclient"
	"episode-crawler/pkg/logger"
	"episode-crawler/pkg/title"
)

// Config holds feed settings. An empty URL disables enrichment.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enricher looks up audio links in a feed by episode number.
type Enricher struct {
	feedURL string
	client  *httpclient.HTTPClient
	parser  *gofeed.Parser
	log     logger.Interface
}

// NewEnricher creates an enricher for cfg.
func NewEnricher(cfg Config, log logger.Interface) *Enricher {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Enricher{
		feedURL: strings.TrimSpace(cfg.URL),
		client:  httpclient.NewClient(httpclient.FeedClient, cfg.Timeout),
		parser:  gofeed.NewParser(),
		log:     log.WithComponent("feed"),
	}
}

// Enabled reports whether a feed URL is configured.
func (e *Enricher) Enabled() bool {
	return e != nil && e.feedURL != ""
}

// Links fetches the feed and returns audio URLs keyed by episode number.
// Items whose titles carry no episode number are ignored.
func (e *Enricher) Links(ctx context.Context) (map[int]string, error) {
	resp, err := e.client.Get(ctx, e.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	f, err := e.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	links := make(map[int]string, len(f.Items))
	for _, item := range f.Items {
		n, ok := title.Number(item.Title)
		if !ok {
			continue
		}
		if _, dup := links[n]; dup {
			continue
		}
		if link := audioLink(item); link != "" {
			links[n] = link
		}
	}
	return links, nil
}

// Enrich fills DownloadLink on episodes that have none and returns how many
// were filled. Links found on detail pages are never replaced. Feed
// failures are logged and leave episodes unchanged.
func (e *Enricher) Enrich(ctx context.Context, episodes []domain.Episode) int {
	if !e.Enabled() {
		return 0
	}

	missing := 0
	for i := range episodes {
		if !episodes[i].HasDownloadLink() {
			missing++
		}
	}
	if missing == 0 {
		return 0
	}

	links, err := e.Links(ctx)
	if err != nil {
		e.log.Warn("Feed enrichment skipped", "url", e.feedURL, "error", err)
		return 0
	}

	filled := 0
	for i := range episodes {
		if episodes[i].HasDownloadLink() {
			continue
		}
		if link, ok := links[episodes[i].EpisodeNumber]; ok {
			episodes[i].DownloadLink = link
			filled++
		}
	}

	e.log.Info("Feed enrichment finished", "missing", missing, "filled", filled)
	return filled
}

var audioExtensions = map[string]bool{
	".mp3": true,
	".m4a": true,
	".aac": true,
	".ogg": true,
	".wav": true,
}

// audioLink prefers an audio enclosure and falls back to the item link when
// it points at an audio file.
func audioLink(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "audio/") || isAudioURL(enc.URL) {
			return strings.TrimSpace(enc.URL)
		}
	}
	if isAudioURL(item.Link) {
		return strings.TrimSpace(item.Link)
	}
	return ""
}

func isAudioURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return audioExtensions[strings.ToLower(path.Ext(p))]
}
