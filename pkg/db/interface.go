package db

import (
	"context"
	"database/sql"

	"episode-crawler/pkg/domain"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
}

// EpisodeStore persists crawled episodes keyed by episode number. The
// returned bool reports whether a new row was inserted.
type EpisodeStore interface {
	UpsertEpisode(ctx context.Context, ep *domain.Episode) (bool, error)
}

var (
	_ EpisodeStore = (*Client)(nil)
	_ EpisodeStore = (*EpisodeTable)(nil)
	_ EpisodeStore = (*SupabaseClient)(nil)
)
