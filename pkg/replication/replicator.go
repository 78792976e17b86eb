package replication

import (
	"context"
	"fmt"
	"sync"

	"episode-crawler/pkg/domain"
	"episode-crawler/pkg/logger"
)

const (
	defaultBatchSize = 100
	defaultWorkers   = 5
)

// EpisodeSource lists the episodes to copy.
type EpisodeSource interface {
	ListEpisodes(ctx context.Context) ([]domain.Episode, error)
}

// EpisodeSink stores a batch of episodes and reports how many were new.
type EpisodeSink interface {
	EnsureSchema(ctx context.Context) error
	UpsertEpisodesTx(ctx context.Context, episodes []domain.Episode) (int, error)
}

// Config wires the replication dependencies.
type Config struct {
	Source EpisodeSource
	Sink   EpisodeSink
	Logger logger.Interface

	BatchSize int
	Workers   int
}

// Replicator copies episodes from a source (MongoDB in production) into a
// sink (the Postgres episode table) using the same upsert rules as a crawl.
type Replicator struct {
	source    EpisodeSource
	sink      EpisodeSink
	log       logger.Interface
	batchSize int
	workers   int
}

// Result summarises one replication run.
type Result struct {
	Processed int
	Inserted  int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("episode source is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("episode sink is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Replicator{
		source:    cfg.Source,
		sink:      cfg.Sink,
		log:       cfg.Logger.WithComponent("replication"),
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}, nil
}

// ReplicateEpisodes reads all episodes from the source and upserts them
// into the sink in batches.
func (r *Replicator) ReplicateEpisodes(ctx context.Context) (Result, error) {
	if err := r.sink.EnsureSchema(ctx); err != nil {
		return Result{}, err
	}

	episodes, err := r.source.ListEpisodes(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read episodes: %w", err)
	}

	r.log.Info("Loaded episodes from Mongo", "count", len(episodes), "batch_size", r.batchSize)

	res, err := r.processBatches(ctx, episodes)
	if err != nil {
		return res, err
	}

	r.log.Info("Replication complete", "processed", res.Processed, "inserted", res.Inserted)
	return res, nil
}

type batchJob struct {
	batch []domain.Episode
	start int
	end   int
}

type batchResult struct {
	processed int
	inserted  int
	err       error
}

// processBatches fans batches out to workers and fails fast on the first
// error.
func (r *Replicator) processBatches(ctx context.Context, episodes []domain.Episode) (Result, error) {
	if len(episodes) == 0 {
		return Result{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numBatches := (len(episodes) + r.batchSize - 1) / r.batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(episodes); start += r.batchSize {
		end := min(start+r.batchSize, len(episodes))
		jobs <- batchJob{batch: episodes[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				inserted, err := r.processBatch(ctx, job)
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var res Result
	for result := range results {
		if result.err != nil {
			cancel()
			// Drain so workers can exit.
			for range results {
			}
			return res, result.err
		}
		res.Processed += result.processed
		res.Inserted += result.inserted
		r.log.Debug("Replication progress", "processed", res.Processed, "total", len(episodes), "inserted", res.Inserted)
	}

	return res, nil
}

func (r *Replicator) processBatch(ctx context.Context, job batchJob) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	inserted, err := r.sink.UpsertEpisodesTx(ctx, job.batch)
	if err != nil {
		return 0, fmt.Errorf("upsert batch [%d:%d]: %w", job.start, job.end, err)
	}
	return inserted, nil
}
