package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"episode-crawler/pkg/browser"
	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
)

var crawledAt = time.Date(2022, 3, 4, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ListingURL = testListingURL
	cfg.SettleInterval = time.Millisecond
	return cfg
}

func newTestCrawler(cfg Config, open Opener) *Crawler {
	c := New(cfg, open, nil)
	c.now = func() time.Time { return crawledAt }
	return c
}

func TestCrawl_EndToEnd(t *testing.T) {
	s := newFakeSession([]fakeEntry{
		numbered(1305, "Guest A"),
		repost("Old Favorite"),
		numbered(1303, "Guest B"),
		numbered(1302, "Guest C"),
	})
	s.details[detailURL("episode-1305")] = detailPage("Marc talks with Guest A.", "https://cdn.wtf.test/1305.mp3")
	s.details[detailURL("episode-1303")] = multiBlockDetailPage("Marc talks with Guest B.")

	episodes, err := newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), 1303)
	require.NoError(t, err)

	assert.Equal(t, []domain.Episode{
		{
			EpisodeNumber: 1305,
			Name:          "Guest A",
			ReleaseDate:   "March 3, 2022",
			Description:   "Marc talks with Guest A.",
			DownloadLink:  "https://cdn.wtf.test/1305.mp3",
			DetailURL:     detailURL("episode-1305"),
			CrawledAt:     crawledAt,
		},
		{
			EpisodeNumber: 1303,
			Name:          "Guest B",
			ReleaseDate:   "March 3, 2022",
			Description:   "Marc talks with Guest B.",
			DetailURL:     detailURL("episode-1303"),
			CrawledAt:     crawledAt,
		},
	}, episodes)

	assert.Equal(t, []string{testListingURL, detailURL("episode-1305"), detailURL("episode-1303")}, s.navigations)
	assert.Equal(t, 0, s.loadMoreCalls)
	assert.Equal(t, 1, s.closeCount)
}

func TestCrawl_NeverEmitsBelowThreshold(t *testing.T) {
	var batch []fakeEntry
	for n := 1310; n >= 1290; n-- {
		batch = append(batch, numbered(n, "Guest"))
	}
	for _, threshold := range []int{1290, 1300, 1310, 1311} {
		s := newFakeSession(batch)
		episodes, err := newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), threshold)
		require.NoError(t, err)
		for _, ep := range episodes {
			assert.GreaterOrEqual(t, ep.EpisodeNumber, threshold)
		}
		if threshold <= 1310 {
			assert.Len(t, episodes, 1310-threshold+1)
		} else {
			assert.Empty(t, episodes)
		}
	}
}

func TestCrawl_MissingDescriptionAndLink(t *testing.T) {
	s := newFakeSession([]fakeEntry{numbered(10, "Guest")})
	s.details[detailURL("episode-10")] = `<html><body><h1>Episode 10</h1></body></html>`

	episodes, err := newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, episodes, 1)
	assert.Empty(t, episodes[0].Description)
	assert.False(t, episodes[0].HasDownloadLink())
}

func TestCrawl_DuplicateEntriesEmittedOnce(t *testing.T) {
	s := newFakeSession([]fakeEntry{
		numbered(12, "Guest"),
		numbered(12, "Guest"),
		numbered(11, "Other"),
	})

	episodes, err := newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, 12, episodes[0].EpisodeNumber)
	assert.Equal(t, 11, episodes[1].EpisodeNumber)
}

func TestCrawl_DetailFailurePolicies(t *testing.T) {
	entries := []fakeEntry{numbered(3, "First"), numbered(2, "Second"), numbered(1, "Third")}
	failing := detailURL("episode-2")

	tests := []struct {
		policy    DetailErrorPolicy
		wantNums  []int
		wantError bool
	}{
		{policy: PolicySkip, wantNums: []int{3, 1}},
		{policy: PolicyKeep, wantNums: []int{3, 2, 1}},
		{policy: PolicyAbort, wantError: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			s := newFakeSession(entries)
			for _, slug := range []string{"episode-3", "episode-1"} {
				s.details[detailURL(slug)] = detailPage("About "+slug, "")
			}
			s.navErrs[failing] = errors.New("net::ERR_CONNECTION_RESET")

			cfg := testConfig()
			cfg.DetailErrorPolicy = tt.policy
			episodes, err := newTestCrawler(cfg, s.opener()).Crawl(context.Background(), 1)

			assert.Equal(t, 1, s.closeCount, "session must be closed exactly once")

			if tt.wantError {
				var navErr *browser.NavigationError
				require.ErrorAs(t, err, &navErr)
				assert.Equal(t, failing, navErr.URL)
				assert.Nil(t, episodes)
				return
			}

			require.NoError(t, err)
			var got []int
			for _, ep := range episodes {
				got = append(got, ep.EpisodeNumber)
			}
			assert.Equal(t, tt.wantNums, got)
			if tt.policy == PolicyKeep {
				assert.Empty(t, episodes[1].Description)
				assert.Equal(t, "About episode-1", episodes[2].Description)
			}
		})
	}
}

func TestCrawl_SkippedEpisodeLogsCause(t *testing.T) {
	s := newFakeSession([]fakeEntry{numbered(2, "Second"), numbered(1, "First")})
	s.details[detailURL("episode-1")] = detailPage("About episode-1", "")
	s.navErrs[detailURL("episode-2")] = errors.New("net::ERR_CONNECTION_RESET")

	core, logs := observer.New(zapcore.WarnLevel)
	c := New(testConfig(), s.opener(), logger.NewFromZap(zap.New(core)))

	episodes, err := c.Crawl(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	skipped := logs.FilterMessage("Skipping episode").All()
	require.Len(t, skipped, 1)
	fields := skipped[0].ContextMap()
	assert.EqualValues(t, 2, fields["episode"])
	assert.Contains(t, fields["error"], "ERR_CONNECTION_RESET")
}

func TestCrawl_ListingNavigationFailureAborts(t *testing.T) {
	s := newFakeSession([]fakeEntry{numbered(1, "Guest")})
	s.navErrs[testListingURL] = context.DeadlineExceeded

	episodes, err := newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), 1)

	var navErr *browser.NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, testListingURL, navErr.URL)
	assert.Nil(t, episodes)
	assert.Equal(t, 1, s.closeCount)
}

func TestCrawl_OpenerFailure(t *testing.T) {
	openErr := errors.New("chrome not found")
	c := newTestCrawler(testConfig(), func(context.Context) (PageSession, error) {
		return nil, openErr
	})

	_, err := c.Crawl(context.Background(), 1)
	assert.ErrorIs(t, err, openErr)
}

func TestCrawl_CancelledContextClosesSession(t *testing.T) {
	s := newFakeSession([]fakeEntry{numbered(1, "Guest")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCrawler(testConfig(), s.opener()).Crawl(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.closeCount)
}

func TestCrawl_PanicStillClosesSession(t *testing.T) {
	s := newFakeSession([]fakeEntry{numbered(2, "Guest"), numbered(1, "Guest")})
	s.panicURL = detailURL("episode-1")

	assert.Panics(t, func() {
		_, _ = newTestCrawler(testConfig(), s.opener()).Crawl(context.Background(), 1)
	})
	assert.Equal(t, 1, s.closeCount)
}

func TestCrawl_PaginationExhaustedClosesSession(t *testing.T) {
	s := newFakeSession([]fakeEntry{repost("Only reposts")})
	s.stuck = true

	cfg := testConfig()
	cfg.StallLimit = 2
	_, err := newTestCrawler(cfg, s.opener()).Crawl(context.Background(), 1)

	assert.True(t, IsPaginationExhausted(err))
	assert.Equal(t, 1, s.closeCount)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())

	bad := []Config{
		{ListingURL: "/podcast"},
		{DetailErrorPolicy: "retry"},
		{MaxExpansions: -1},
		{SettleInterval: -time.Second},
	}
	for _, cfg := range bad {
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{MaxExpansions: 5}.withDefaults()
	assert.Equal(t, 5, cfg.MaxExpansions)
	assert.Equal(t, DefaultListingURL, cfg.ListingURL)
	assert.Equal(t, DefaultStallLimit, cfg.StallLimit)
	assert.Equal(t, PolicySkip, cfg.DetailErrorPolicy)
}
