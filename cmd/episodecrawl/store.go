package main

import (
	"context"
	"fmt"
	"time"

	"episode-crawler/pkg/config"
	"episode-crawler/pkg/db"
	"episode-crawler/pkg/logger"
	"episode-crawler/pkg/scrapeservice"
)

const closeTimeout = 10 * time.Second

// openStore connects the configured episode store. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, log logger.Interface) (scrapeservice.EpisodeSaver, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := openMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure Mongo indexes", "error", err)
		}
		return client, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			_ = client.Close(closeCtx)
		}, nil

	case config.DriverPostgres:
		pg := db.NewPostgresClient(cfg.Store.Postgres)
		if err := pg.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		table := db.NewEpisodeTable(pg)
		if err := table.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
		return table, func() { _ = pg.Close() }, nil

	case config.DriverSupabase:
		sb := db.NewSupabaseClient(cfg.Store.Supabase)
		if err := sb.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to supabase: %w", err)
		}
		if sb.HasDirectDB() {
			if err := db.NewEpisodeTable(sb).EnsureSchema(ctx); err != nil {
				_ = sb.Close()
				return nil, nil, err
			}
		} else {
			log.Info("Supabase running in REST mode")
		}
		return sb, func() { _ = sb.Close() }, nil
	}

	return nil, nil, fmt.Errorf("no store configured")
}

func openMongo(ctx context.Context, cfg *config.Config) (*db.Client, error) {
	m := cfg.Store.Mongo
	client := db.NewClient(m.URI, m.Database, m.Collection)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return client, nil
}
