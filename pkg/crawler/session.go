package crawler

import (
	"context"

	"episode-crawler/pkg/browser"
	"episode-crawler/pkg/logger"
)

// PageSession is the crawler's only I/O surface: one browsing context that
// loads pages, runs scripts in them and lets scripts call back into Go.
type PageSession interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, script string, out any, args ...any) error
	ExposeHostFunction(ctx context.Context, name string, fn browser.HostFunc) error
	Close() error
}

// Opener acquires a fresh PageSession for one crawl.
type Opener func(ctx context.Context) (PageSession, error)

// BrowserOpener opens headless Chrome sessions with opts.
func BrowserOpener(opts browser.Options, log logger.Interface) Opener {
	return func(ctx context.Context) (PageSession, error) {
		s, err := browser.Open(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
