// Package crawler discovers numbered podcast episodes on an expandable
// listing page and enriches them from their detail pages, using a single
// page session per crawl.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"episode-crawler/pkg/content"
	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
	"episode-crawler/pkg/title"
)

// Crawler assembles episodes from the listing and detail pages.
type Crawler struct {
	cfg     Config
	open    Opener
	pager   *Pager
	details *DetailFetcher
	log     logger.Interface
	now     func() time.Time
}

// New creates a crawler that acquires its page session through open.
func New(cfg Config, open Opener, log logger.Interface) *Crawler {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}
	log = log.WithComponent("crawler")

	extractor := content.NewExtractor(cfg.Selectors)
	extractor.SetReadabilityFallback(cfg.ReadabilityFallback)

	return &Crawler{
		cfg:     cfg,
		open:    open,
		pager:   NewPager(cfg, extractor, log),
		details: NewDetailFetcher(extractor, log),
		log:     log,
		now:     time.Now,
	}
}

type candidate struct {
	entry  domain.ListingEntry
	parsed title.Parsed
}

// Crawl returns every numbered episode at or above threshold, newest first.
// The page session is closed exactly once before Crawl returns, whatever
// the outcome.
func (c *Crawler) Crawl(ctx context.Context, threshold int) ([]domain.Episode, error) {
	log := c.log.With("crawl_id", uuid.NewString(), "threshold", threshold)

	if c.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CrawlTimeout)
		defer cancel()
	}

	start := time.Now()
	session, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to close page session")
		}
	}()

	entries, err := c.pager.Collect(ctx, session, threshold)
	if err != nil {
		return nil, fmt.Errorf("collect listing: %w", err)
	}

	candidates := c.selectCandidates(entries, threshold, log)
	log.Info("Listing collected", "entries", len(entries), "candidates", len(candidates))

	episodes := make([]domain.Episode, 0, len(candidates))
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("crawl cancelled: %w", err)
		}

		detail, err := c.details.Fetch(ctx, session, cand.entry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch episode %d: %w", cand.parsed.Number, err)
			}
			switch c.cfg.DetailErrorPolicy {
			case PolicyAbort:
				return nil, fmt.Errorf("fetch episode %d: %w", cand.parsed.Number, err)
			case PolicyKeep:
				log.WithError(err).Warn("Keeping episode without detail", "episode", cand.parsed.Number)
			default:
				log.WithError(err).Warn("Skipping episode", "episode", cand.parsed.Number)
				continue
			}
		}

		episodes = append(episodes, domain.Episode{
			EpisodeNumber: cand.parsed.Number,
			Name:          cand.parsed.Name,
			ReleaseDate:   cand.entry.RawDate,
			Description:   detail.Description,
			DownloadLink:  detail.DownloadLink,
			DetailURL:     cand.entry.DetailURL,
			CrawledAt:     c.now(),
		})
	}

	log.Info("Crawl finished", "episodes", len(episodes), "duration", time.Since(start))
	return episodes, nil
}

// selectCandidates keeps numbered entries at or above threshold, in listing
// order, once per episode number.
func (c *Crawler) selectCandidates(entries []domain.ListingEntry, threshold int, log logger.Interface) []candidate {
	seen := make(map[int]bool, len(entries))
	out := make([]candidate, 0, len(entries))

	for _, entry := range entries {
		parsed, ok := title.Parse(entry.RawTitle)
		switch {
		case !ok:
			log.Debug("Dropping unparsable title", "title", entry.RawTitle)
			continue
		case parsed.Repost:
			continue
		case parsed.Number < threshold:
			continue
		case seen[parsed.Number]:
			log.Debug("Dropping duplicate listing entry", "episode", parsed.Number)
			continue
		}
		seen[parsed.Number] = true
		out = append(out, candidate{entry: entry, parsed: parsed})
	}
	return out
}

// IsPaginationExhausted reports whether err came from a listing that could
// not be expanded far enough.
func IsPaginationExhausted(err error) bool {
	return errors.Is(err, ErrPaginationExhausted)
}
