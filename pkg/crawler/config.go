package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"episode-crawler/pkg/content"
)

// DetailErrorPolicy decides what happens to an episode whose detail page
// cannot be loaded.
type DetailErrorPolicy string

const (
	// PolicySkip drops the episode and continues the crawl.
	PolicySkip DetailErrorPolicy = "skip"
	// PolicyKeep emits the episode without detail fields.
	PolicyKeep DetailErrorPolicy = "keep"
	// PolicyAbort fails the crawl with the navigation error.
	PolicyAbort DetailErrorPolicy = "abort"
)

const (
	DefaultListingURL        = "http://www.wtfpod.com/podcast"
	DefaultSettleInterval    = 500 * time.Millisecond
	DefaultMaxExpansions     = 200
	DefaultStallLimit        = 3
	DefaultPaginationTimeout = 10 * time.Minute
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid crawler config")

// Config holds crawler settings.
type Config struct {
	ListingURL     string        `mapstructure:"listing_url"`
	SettleInterval time.Duration `mapstructure:"settle_interval"`

	// Pagination bounds. Reaching any of them fails the crawl with
	// ErrPaginationExhausted.
	MaxExpansions     int           `mapstructure:"max_expansions"`
	StallLimit        int           `mapstructure:"stall_limit"`
	PaginationTimeout time.Duration `mapstructure:"pagination_timeout"`

	// CrawlTimeout bounds the whole crawl. Zero means no limit.
	CrawlTimeout time.Duration `mapstructure:"crawl_timeout"`

	DetailErrorPolicy   DetailErrorPolicy `mapstructure:"detail_error_policy"`
	ReadabilityFallback bool              `mapstructure:"readability_fallback"`

	Selectors content.Selectors `mapstructure:"selectors"`
}

// DefaultConfig returns the settings for the WTF podcast listing.
func DefaultConfig() Config {
	return Config{
		ListingURL:        DefaultListingURL,
		SettleInterval:    DefaultSettleInterval,
		MaxExpansions:     DefaultMaxExpansions,
		StallLimit:        DefaultStallLimit,
		PaginationTimeout: DefaultPaginationTimeout,
		DetailErrorPolicy: PolicySkip,
		Selectors:         content.DefaultSelectors(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ListingURL == "" {
		c.ListingURL = d.ListingURL
	}
	if c.SettleInterval <= 0 {
		c.SettleInterval = d.SettleInterval
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = d.MaxExpansions
	}
	if c.StallLimit <= 0 {
		c.StallLimit = d.StallLimit
	}
	if c.PaginationTimeout <= 0 {
		c.PaginationTimeout = d.PaginationTimeout
	}
	if c.DetailErrorPolicy == "" {
		c.DetailErrorPolicy = d.DetailErrorPolicy
	}
	return c
}

// Validate checks values that have no sensible default.
func (c Config) Validate() error {
	if c.ListingURL != "" {
		u, err := url.Parse(c.ListingURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: listing_url %q is not an absolute URL", ErrInvalidConfig, c.ListingURL)
		}
	}

	switch c.DetailErrorPolicy {
	case "", PolicySkip, PolicyKeep, PolicyAbort:
	default:
		return fmt.Errorf("%w: unknown detail_error_policy %q", ErrInvalidConfig, c.DetailErrorPolicy)
	}

	if c.MaxExpansions < 0 || c.StallLimit < 0 {
		return fmt.Errorf("%w: pagination bounds must not be negative", ErrInvalidConfig)
	}
	if c.SettleInterval < 0 || c.PaginationTimeout < 0 || c.CrawlTimeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}
