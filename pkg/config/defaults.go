package config

import (
	"time"

	"github.com/spf13/viper"

	"episode-crawler/pkg/content"
	"episode-crawler/pkg/crawler"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.output_paths", []string{"stderr"})

	v.SetDefault("crawler.listing_url", crawler.DefaultListingURL)
	v.SetDefault("crawler.settle_interval", crawler.DefaultSettleInterval)
	v.SetDefault("crawler.max_expansions", crawler.DefaultMaxExpansions)
	v.SetDefault("crawler.stall_limit", crawler.DefaultStallLimit)
	v.SetDefault("crawler.pagination_timeout", crawler.DefaultPaginationTimeout)
	v.SetDefault("crawler.crawl_timeout", 30*time.Minute)
	v.SetDefault("crawler.detail_error_policy", string(crawler.PolicySkip))
	v.SetDefault("crawler.readability_fallback", false)

	sel := content.DefaultSelectors()
	v.SetDefault("crawler.selectors.entry", sel.Entry)
	v.SetDefault("crawler.selectors.title", sel.Title)
	v.SetDefault("crawler.selectors.date", sel.Date)
	v.SetDefault("crawler.selectors.more_link", sel.MoreLink)
	v.SetDefault("crawler.selectors.load_more", sel.LoadMore)
	v.SetDefault("crawler.selectors.content_block", sel.ContentBlock)
	v.SetDefault("crawler.selectors.text_block", sel.TextBlock)
	v.SetDefault("crawler.selectors.audio_embed", sel.AudioEmbed)
	v.SetDefault("crawler.selectors.audio_attr", sel.AudioAttr)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ready_selector", "body")
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.evaluation_timeout", 30*time.Second)

	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", 30*time.Second)

	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.mongo.uri", "")
	v.SetDefault("store.mongo.database", "episodes")
	v.SetDefault("store.mongo.collection", "episodes")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_open_conns", 0)
	v.SetDefault("store.postgres.max_idle_conns", 0)
	v.SetDefault("store.postgres.conn_max_idle", time.Duration(0))
	v.SetDefault("store.postgres.conn_max_life", time.Duration(0))
	v.SetDefault("store.supabase.connection_string", "")
	v.SetDefault("store.supabase.url", "")
	v.SetDefault("store.supabase.key", "")
	v.SetDefault("store.supabase.password", "")
	v.SetDefault("store.supabase.max_open_conns", 0)
	v.SetDefault("store.supabase.max_idle_conns", 0)
	v.SetDefault("store.supabase.conn_max_idle", time.Duration(0))
	v.SetDefault("store.supabase.conn_max_life", time.Duration(0))
}
