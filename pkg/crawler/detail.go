package crawler

import (
	"context"
	"errors"

	"episode-crawler/pkg/content"
	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
)

// ErrMissingDetailURL is returned for listing entries without a permalink.
var ErrMissingDetailURL = errors.New("listing entry has no detail URL")

// DetailFetcher loads episode detail pages and extracts their fields.
type DetailFetcher struct {
	extractor *content.Extractor
	log       logger.Interface
}

// NewDetailFetcher creates a detail fetcher.
func NewDetailFetcher(extractor *content.Extractor, log logger.Interface) *DetailFetcher {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &DetailFetcher{extractor: extractor, log: log.WithComponent("detail")}
}

// Fetch navigates to the entry's detail page and returns its description
// and download link. Only navigation failures and cancellation are
// returned as errors; anything that goes wrong while reading the page
// yields empty fields.
func (f *DetailFetcher) Fetch(ctx context.Context, s PageSession, entry domain.ListingEntry) (content.Detail, error) {
	if entry.DetailURL == "" {
		return content.Detail{}, ErrMissingDetailURL
	}

	if err := s.Navigate(ctx, entry.DetailURL); err != nil {
		return content.Detail{}, err
	}

	snap, err := takeSnapshot(ctx, s)
	if err != nil {
		if ctx.Err() != nil {
			return content.Detail{}, ctx.Err()
		}
		f.log.Warn("Detail page unreadable", "url", entry.DetailURL, "error", err)
		return content.Detail{}, nil
	}

	pageURL := snap.URL
	if pageURL == "" {
		pageURL = entry.DetailURL
	}

	detail, err := f.extractor.Detail(snap.HTML, pageURL)
	if err != nil {
		f.log.Warn("Detail extraction failed", "url", entry.DetailURL, "error", err)
		return content.Detail{}, nil
	}

	if detail.Description == "" {
		f.log.Debug("No description on detail page", "url", entry.DetailURL)
	}
	return detail, nil
}
