package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// settleFunction is the host function the load-more script awaits after
// clicking, so newly requested entries can render.
const settleFunction = "crawlerSettle"

// snapshotScript returns the rendered document and its final URL.
const snapshotScript = `() => ({
  url: document.location.href,
  html: document.documentElement.outerHTML,
})`

// loadMoreScript clicks the load-more control and waits for the host to
// settle. It resolves to false when the control is not on the page.
const loadMoreScript = `async (selector, settle) => {
  const control = document.querySelector(selector);
  if (!control) {
    return false;
  }
  control.click();
  await window[settle]();
  return true;
}`

type snapshot struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

func takeSnapshot(ctx context.Context, s PageSession) (snapshot, error) {
	var snap snapshot
	if err := s.Evaluate(ctx, snapshotScript, &snap); err != nil {
		return snapshot{}, fmt.Errorf("snapshot page: %w", err)
	}
	return snap, nil
}

// settleHost sleeps for interval or until ctx is done.
func settleHost(interval time.Duration) func(context.Context, []json.RawMessage) (any, error) {
	return func(ctx context.Context, _ []json.RawMessage) (any, error) {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return true, nil
		}
	}
}
