package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"episode-crawler/pkg/browser"
	"episode-crawler/pkg/content"
	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
	"episode-crawler/pkg/title"
)

// ErrPaginationExhausted is returned when the listing cannot be expanded
// deep enough within the configured bounds.
var ErrPaginationExhausted = errors.New("pagination exhausted")

var errPaginationBudget = errors.New("pagination time budget spent")

// Pager expands the listing page until every entry at or above a threshold
// is rendered.
type Pager struct {
	listingURL    string
	loadMore      string
	settle        time.Duration
	maxExpansions int
	stallLimit    int
	timeout       time.Duration

	extractor *content.Extractor
	log       logger.Interface
}

// NewPager creates a pager from cfg. Zero values in cfg take defaults.
func NewPager(cfg Config, extractor *content.Extractor, log logger.Interface) *Pager {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Pager{
		listingURL:    cfg.ListingURL,
		loadMore:      extractor.Selectors().LoadMore,
		settle:        cfg.SettleInterval,
		maxExpansions: cfg.MaxExpansions,
		stallLimit:    cfg.StallLimit,
		timeout:       cfg.PaginationTimeout,
		extractor:     extractor,
		log:           log.WithComponent("pager"),
	}
}

// Collect loads the listing once, expands it until the oldest numbered
// entry is at or below threshold and returns all rendered entries, newest
// first.
//
// Reposts and unparsable titles at the tail never end pagination. A listing
// without a load-more control is fully expanded and returned as is.
func (p *Pager) Collect(ctx context.Context, s PageSession, threshold int) ([]domain.ListingEntry, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, p.timeout, errPaginationBudget)
	defer cancel()

	err := s.ExposeHostFunction(ctx, settleFunction, settleHost(p.settle))
	if err != nil && !errors.Is(err, browser.ErrHostFunctionExists) {
		return nil, fmt.Errorf("expose settle function: %w", err)
	}

	if err := s.Navigate(ctx, p.listingURL); err != nil {
		return nil, p.budgetError(ctx, err)
	}

	entries, err := p.read(ctx, s)
	if err != nil {
		return nil, p.budgetError(ctx, err)
	}

	stalled := 0
	for expansions := 0; ; expansions++ {
		if oldest, ok := oldestNumber(entries); ok && oldest <= threshold {
			p.log.Debug("Listing deep enough",
				"entries", len(entries), "oldest", oldest, "expansions", expansions)
			return entries, nil
		}

		if expansions >= p.maxExpansions {
			return nil, fmt.Errorf("%w: %d expansions did not reach episode %d",
				ErrPaginationExhausted, expansions, threshold)
		}

		expanded, err := p.expand(ctx, s)
		if err != nil {
			return nil, p.budgetError(ctx, err)
		}
		if !expanded {
			p.log.Warn("Load-more control missing before reaching threshold",
				"entries", len(entries), "threshold", threshold)
			return entries, nil
		}

		next, err := p.read(ctx, s)
		if err != nil {
			return nil, p.budgetError(ctx, err)
		}

		if len(next) <= len(entries) {
			stalled++
			if stalled >= p.stallLimit {
				return nil, fmt.Errorf("%w: listing stopped growing at %d entries after %d expansions",
					ErrPaginationExhausted, len(next), expansions+1)
			}
		} else {
			stalled = 0
		}
		entries = next
	}
}

func (p *Pager) read(ctx context.Context, s PageSession) ([]domain.ListingEntry, error) {
	snap, err := takeSnapshot(ctx, s)
	if err != nil {
		return nil, err
	}

	pageURL := snap.URL
	if pageURL == "" {
		pageURL = p.listingURL
	}

	entries, err := p.extractor.ListingEntries(snap.HTML, pageURL)
	if err != nil {
		return nil, fmt.Errorf("read listing entries: %w", err)
	}
	return entries, nil
}

func (p *Pager) expand(ctx context.Context, s PageSession) (bool, error) {
	var clicked bool
	if err := s.Evaluate(ctx, loadMoreScript, &clicked, p.loadMore, settleFunction); err != nil {
		return false, fmt.Errorf("load more entries: %w", err)
	}
	return clicked, nil
}

// budgetError reports a spent pagination budget as ErrPaginationExhausted.
func (p *Pager) budgetError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errPaginationBudget) {
		return fmt.Errorf("%w: %w: %w", ErrPaginationExhausted, errPaginationBudget, err)
	}
	return err
}

// oldestNumber returns the number of the last numbered entry. Trailing
// reposts are skipped, so a repost rendered after an entry at or below the
// threshold does not trigger another expansion.
func oldestNumber(entries []domain.ListingEntry) (int, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if n, ok := title.Number(entries[i].RawTitle); ok {
			return n, true
		}
	}
	return 0, false
}
