package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fraud-viewer/internal/broker/kafka"
	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/config"
	minio_repo "fraud-viewer/internal/repository/submission/cloud/minio"
	postgres_repo "fraud-viewer/internal/repository/submission/db/postgres"
	"fraud-viewer/internal/usecase/archive"
	pool "fraud-viewer/internal/worker"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

var ErrBackendsDisabled = errors.New("archive worker needs kafka and minio enabled")

type Worker struct {
	cfg      *config.Config
	logger   *zlog.Zerolog
	db       *dbpg.DB
	consumer *kafka.ConsumerClient
	pool     *pool.Pool
}

// NewWorker wires the archive worker. The database is optional: without it archived
// submissions are not marked in history.
func NewWorker(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	if !cfg.Kafka.Enabled || !cfg.Minio.Enabled {
		return nil, ErrBackendsDisabled
	}

	retries := cfg.DefaultRetryStrategy()

	client, err := analyzer.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}

	store, err := minio_repo.NewArchiveRepository(ctx, cfg, retries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive repository: %w", err)
	}

	w := &Worker{cfg: cfg, logger: logger}

	var repo *postgres_repo.SubmissionsRepository
	if cfg.DB.Enabled {
		w.db, err = dbpg.New(cfg.DBDSN(), []string{}, &dbpg.Options{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo = postgres_repo.NewSubmissionsRepository(w.db, retries)
	}

	archiver, err := newArchiver(cfg, client, store, repo, logger)
	if err != nil {
		w.close()
		return nil, err
	}

	w.consumer = kafka.NewConsumerClient(cfg)
	w.pool = pool.NewPool(w.consumer, archiver, retries, cfg.Worker.Concurrency, logger)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Str("group", cfg.Kafka.GroupID).
		Int("concurrency", cfg.Worker.Concurrency).
		Bool("history", cfg.DB.Enabled).
		Msg("Worker configuration")

	return w, nil
}

// newArchiver leaves the recorder as an untyped nil when history is disabled.
func newArchiver(cfg *config.Config, client *analyzer.Client, store *minio_repo.ArchiveRepository, repo *postgres_repo.SubmissionsRepository, logger *zlog.Zerolog) (*archive.Archiver, error) {
	var (
		archiver *archive.Archiver
		err      error
	)

	if repo != nil {
		archiver, err = archive.NewArchiver(client, store, repo,
			cfg.Worker.ChartWidth, float64(cfg.Worker.CaptionSize), cfg.Worker.CaptionColor, logger)
	} else {
		archiver, err = archive.NewArchiver(client, store, nil,
			cfg.Worker.ChartWidth, float64(cfg.Worker.CaptionSize), cfg.Worker.CaptionColor, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create archiver: %w", err)
	}

	return archiver, nil
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		w.logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
		cancel()
	}()

	w.pool.Run(ctx)
	w.close()

	w.logger.Info().Msg("Worker stopped gracefully")
	return nil
}

func (w *Worker) close() {
	if w.db != nil && w.db.Master != nil {
		if err := w.db.Master.Close(); err != nil {
			w.logger.Error().Err(err).Msg("Failed to close database")
		}
	}

	if w.consumer != nil {
		if err := w.consumer.Close(); err != nil {
			w.logger.Error().Err(err).Msg("Failed to close consumer")
		}
	}
}
