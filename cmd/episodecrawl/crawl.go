package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"episode-crawler/pkg/crawler"
	"episode-crawler/pkg/feed"
	"episode-crawler/pkg/scrapeservice"
)

func newCrawlCommand() *cobra.Command {
	var (
		threshold int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl episodes at or above a starting episode number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var saver scrapeservice.EpisodeSaver
			if cfg.HasStore() && !dryRun {
				store, closeStore, err := openStore(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer closeStore()
				saver = store
			}

			c := crawler.New(cfg.Crawler, crawler.BrowserOpener(cfg.Browser, log), log)
			svc := scrapeservice.New(c, feed.NewEnricher(cfg.Feed, log), saver, log)

			res, err := svc.Scrape(ctx, threshold)
			if err != nil {
				if crawler.IsPaginationExhausted(err) {
					log.Error("Listing could not be expanded far enough",
						"threshold", threshold,
						"max_expansions", cfg.Crawler.MaxExpansions,
						"pagination_timeout", cfg.Crawler.PaginationTimeout,
					)
				}
				return err
			}

			if saver == nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res.Episodes); err != nil {
					return fmt.Errorf("write episodes: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", 0, "lowest episode number to discover")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print episodes as JSON instead of saving them")
	_ = cmd.MarkFlagRequired("threshold")

	return cmd
}
