package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"episode-crawler/pkg/db"
	"episode-crawler/pkg/replication"
)

func newReplicateCommand() *cobra.Command {
	var (
		batchSize int
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy all episodes from MongoDB into Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Store.Mongo.URI == "" {
				return fmt.Errorf("store.mongo.uri is required for replication")
			}
			if cfg.Store.Postgres.DSN == "" {
				return fmt.Errorf("store.postgres.dsn is required for replication")
			}

			mongo, err := openMongo(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				_ = mongo.Close(closeCtx)
			}()

			pg := db.NewPostgresClient(cfg.Store.Postgres)
			if err := pg.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to postgres: %w", err)
			}
			defer pg.Close()

			table := db.NewEpisodeTable(pg)
			r, err := replication.NewReplicator(replication.Config{
				Source:    mongo,
				Sink:      table,
				Logger:    log,
				BatchSize: batchSize,
				Workers:   workers,
			})
			if err != nil {
				return err
			}

			res, err := r.ReplicateEpisodes(ctx)
			if err != nil {
				return fmt.Errorf("replication failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Replicated %d episodes (%d new)\n", res.Processed, res.Inserted)

			total, err := table.CountEpisodes(ctx)
			if err != nil {
				log.WithError(err).Warn("Failed to count replicated episodes")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Postgres now holds %d episodes\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "episodes per transaction")
	cmd.Flags().IntVar(&workers, "workers", 5, "parallel batch writers")

	return cmd
}
