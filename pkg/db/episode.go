package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"episode-crawler/pkg/domain"
)

// EpisodeTable reads and writes the episode table over any DBProvider.
type EpisodeTable struct {
	provider DBProvider
}

// NewEpisodeTable creates an EpisodeTable.
func NewEpisodeTable(provider DBProvider) *EpisodeTable {
	return &EpisodeTable{provider: provider}
}

const episodeDDL = `
CREATE TABLE IF NOT EXISTS episode (
  episode_number INTEGER PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  release_date TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  download_link TEXT,
  detail_url TEXT NOT NULL DEFAULT '',
  crawled_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// upsertEpisodeQuery returns a row only when something was written:
// inserted is true for new episodes and false for a refreshed link.
const upsertEpisodeQuery = `
INSERT INTO episode (episode_number, name, release_date, description, download_link, detail_url, crawled_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
ON CONFLICT (episode_number) DO UPDATE
  SET download_link = EXCLUDED.download_link
  WHERE EXCLUDED.download_link IS NOT NULL
RETURNING (xmax = 0) AS inserted`

func (t *EpisodeTable) db() (*sql.DB, error) {
	if t.provider == nil || t.provider.DB() == nil {
		return nil, fmt.Errorf("postgres DB not connected")
	}
	return t.provider.DB(), nil
}

// EnsureSchema creates the episode table if needed.
func (t *EpisodeTable) EnsureSchema(ctx context.Context) error {
	db, err := t.db()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, episodeDDL); err != nil {
		return fmt.Errorf("create episode table: %w", err)
	}
	return nil
}

// UpsertEpisode inserts a new episode or refreshes the download link of an
// existing one. An empty link never clears a stored one.
func (t *EpisodeTable) UpsertEpisode(ctx context.Context, ep *domain.Episode) (bool, error) {
	db, err := t.db()
	if err != nil {
		return false, err
	}
	return upsertEpisode(ctx, db, ep)
}

// sqlQueryer is satisfied by *sql.DB and *sql.Tx.
type sqlQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertEpisode(ctx context.Context, q sqlQueryer, ep *domain.Episode) (bool, error) {
	var inserted bool
	err := q.QueryRowContext(ctx, upsertEpisodeQuery,
		ep.EpisodeNumber, ep.Name, ep.ReleaseDate, ep.Description,
		ep.DownloadLink, ep.DetailURL, ep.CrawledAt,
	).Scan(&inserted)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Existing episode, no link to refresh.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("upsert episode %d: %w", ep.EpisodeNumber, err)
	}
	return inserted, nil
}

// UpsertEpisodesTx upserts a batch in one transaction and returns how many
// rows were inserted.
func (t *EpisodeTable) UpsertEpisodesTx(ctx context.Context, episodes []domain.Episode) (int, error) {
	db, err := t.db()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for i := range episodes {
		ok, err := upsertEpisode(ctx, tx, &episodes[i])
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CountEpisodes returns the number of stored episodes.
func (t *EpisodeTable) CountEpisodes(ctx context.Context) (int, error) {
	db, err := t.db()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM episode`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}
	return n, nil
}
