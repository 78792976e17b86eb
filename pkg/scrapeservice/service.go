// Package scrapeservice runs a crawl and hands the episodes to storage.
package scrapeservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
)

var (
	ErrInvalidThreshold = errors.New("starting episode number must not be negative")
	ErrAllSavesFailed   = errors.New("every episode failed to save")
)

// EpisodeCrawler produces the episodes at or above a threshold.
type EpisodeCrawler interface {
	Crawl(ctx context.Context, threshold int) ([]domain.Episode, error)
}

// LinkEnricher fills missing download links and returns how many it filled.
type LinkEnricher interface {
	Enrich(ctx context.Context, episodes []domain.Episode) int
}

// EpisodeSaver persists one episode; the bool reports an insert.
type EpisodeSaver interface {
	UpsertEpisode(ctx context.Context, ep *domain.Episode) (bool, error)
}

// Service crawls, enriches and saves episodes.
type Service struct {
	crawler  EpisodeCrawler
	enricher LinkEnricher
	saver    EpisodeSaver
	log      logger.Interface
}

// Result summarises one scrape.
type Result struct {
	Episodes []domain.Episode `json:"episodes"`
	Enriched int              `json:"enriched"`
	Inserted int              `json:"inserted"`
	Updated  int              `json:"updated"`
	Failed   int              `json:"failed"`
	Duration time.Duration    `json:"duration"`
}

// New creates a scrape service. enricher and saver may be nil: without a
// saver the episodes are only returned.
func New(crawler EpisodeCrawler, enricher LinkEnricher, saver EpisodeSaver, log logger.Interface) *Service {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Service{
		crawler:  crawler,
		enricher: enricher,
		saver:    saver,
		log:      log.WithComponent("scrape"),
	}
}

// Scrape discovers episodes at or above threshold and saves each one.
// Individual save failures are logged and counted; the call fails only if
// the crawl fails or no episode could be saved.
func (s *Service) Scrape(ctx context.Context, threshold int) (Result, error) {
	if threshold < 0 {
		return Result{}, ErrInvalidThreshold
	}

	start := time.Now()
	episodes, err := s.crawler.Crawl(ctx, threshold)
	if err != nil {
		return Result{}, fmt.Errorf("crawl: %w", err)
	}

	res := Result{Episodes: episodes}
	if s.enricher != nil {
		res.Enriched = s.enricher.Enrich(ctx, episodes)
	}

	if s.saver != nil {
		var lastErr error
		for i := range episodes {
			inserted, err := s.saver.UpsertEpisode(ctx, &episodes[i])
			switch {
			case err != nil:
				res.Failed++
				lastErr = err
				s.log.Error("Failed to save episode", "episode", episodes[i].EpisodeNumber, "error", err)
			case inserted:
				res.Inserted++
			default:
				res.Updated++
			}
		}

		if len(episodes) > 0 && res.Failed == len(episodes) {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("%w: %w", ErrAllSavesFailed, lastErr)
		}
	}

	res.Duration = time.Since(start)
	s.log.Info("Scrape finished",
		"threshold", threshold,
		"episodes", len(episodes),
		"enriched", res.Enriched,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"failed", res.Failed,
		"duration", res.Duration,
	)
	return res, nil
}
