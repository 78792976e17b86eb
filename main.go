package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"episode-crawler/pkg/browser"
	"episode-crawler/pkg/content"
	"episode-crawler/pkg/crawler"
	"episode-crawler/pkg/logger"
	"episode-crawler/pkg/title"
)

// Previews the listing page: expands it down to a threshold and prints the
// entries found, without visiting any detail page.
func main() {
	threshold := 0
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Fatalf("Invalid threshold %q: %v", os.Args[1], err)
		}
		threshold = n
	}

	cfg := crawler.DefaultConfig()
	if len(os.Args) > 2 {
		cfg.ListingURL = os.Args[2]
	}

	open := crawler.BrowserOpener(browser.DefaultOptions(), logger.NewNoOp())
	if err := run(context.Background(), cfg, open, threshold, os.Stdout); err != nil {
		log.Printf("Preview failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg crawler.Config, open crawler.Opener, threshold int, w io.Writer) error {
	session, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer session.Close()

	pager := crawler.NewPager(cfg, content.NewExtractor(cfg.Selectors), logger.NewNoOp())
	entries, err := pager.Collect(ctx, session, threshold)
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}

	// Print first 10 entries at or above the threshold
	maxEntries := 10
	shown := 0

	fmt.Fprintf(w, "Found %d listing entries. Showing up to %d from #%d:\n\n", len(entries), maxEntries, threshold)

	for _, entry := range entries {
		if shown == maxEntries {
			break
		}
		parsed, ok := title.Parse(entry.RawTitle)
		if !ok || !parsed.Numbered() || parsed.Number < threshold {
			continue
		}
		shown++
		fmt.Fprintf(w, "Episode %d:\n", parsed.Number)
		fmt.Fprintf(w, "  Name: %s\n", parsed.Name)
		if entry.RawDate != "" {
			fmt.Fprintf(w, "  Released: %s\n", entry.RawDate)
		}
		fmt.Fprintf(w, "  URL: %s\n", entry.DetailURL)
		fmt.Fprintln(w)
	}
	return nil
}
