package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fraud-viewer/internal/broker/kafka"
	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/config"
	"fraud-viewer/internal/http-server/handler/dashboard"
	"fraud-viewer/internal/http-server/router"
	minio_repo "fraud-viewer/internal/repository/submission/cloud/minio"
	postgres_repo "fraud-viewer/internal/repository/submission/db/postgres"
	"fraud-viewer/internal/usecase"
	"fraud-viewer/internal/usecase/preview"
	"fraud-viewer/internal/usecase/render"
	"fraud-viewer/internal/usecase/submission"
	"fraud-viewer/internal/view/page"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	db       *dbpg.DB
	producer *kafka.ProducerClient
}

// NewApp wires the web front. History, events and the archive are attached only when
// their backends are enabled in cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	retries := cfg.DefaultRetryStrategy()

	client, err := analyzer.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}

	previewer := preview.NewPreviewer(client, cfg.MatchPolicy(), logger)

	renderer, err := render.NewRenderer(cfg.ChartMode(), cfg.PublicURL(), previewer, usecase.SystemClock{}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	var (
		recorder  *postgres_repo.SubmissionsRepository
		publisher *kafka.ProducerClient
	)

	if cfg.DB.Enabled {
		db, err := dbpg.New(cfg.DBDSN(), []string{}, &dbpg.Options{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db

		recorder = postgres_repo.NewSubmissionsRepository(db, retries)
		if err := recorder.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info().Str("host", cfg.DB.Host).Msg("Submission history enabled")
	}

	if cfg.Kafka.Enabled {
		publisher = kafka.NewProducerClient(cfg)
		a.producer = publisher
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Submission events enabled")
	}

	handler := newSubmissionHandler(client, renderer, recorder, publisher, logger)
	pages := page.NewStore(handler, usecase.SystemClock{}, cfg.Server.SessionTTL)

	var dash *dashboard.DashboardHandler
	switch {
	case recorder != nil && cfg.Minio.Enabled:
		archive, err := minio_repo.NewArchiveRepository(ctx, cfg, retries, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create archive repository: %w", err)
		}
		dash = dashboard.NewDashboardHandler(pages, recorder, archive, cfg.Server.MaxUploadSize, logger)
	case recorder != nil:
		dash = dashboard.NewDashboardHandler(pages, recorder, nil, cfg.Server.MaxUploadSize, logger)
	default:
		dash = dashboard.NewDashboardHandler(pages, nil, nil, cfg.Server.MaxUploadSize, logger)
	}

	mux := router.SetupRouter(&router.Handler{Dashboard: dash}, cfg.Server.AllowedOrigins)

	a.server = &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// newSubmissionHandler keeps disabled backends as untyped nils so the handler can
// tell them apart from configured ones.
func newSubmissionHandler(client *analyzer.Client, renderer *render.Renderer, recorder *postgres_repo.SubmissionsRepository, publisher *kafka.ProducerClient, logger *zlog.Zerolog) *submission.Handler {
	switch {
	case recorder != nil && publisher != nil:
		return submission.NewHandler(client, renderer, recorder, publisher, usecase.SystemClock{}, logger)
	case recorder != nil:
		return submission.NewHandler(client, renderer, recorder, nil, usecase.SystemClock{}, logger)
	case publisher != nil:
		return submission.NewHandler(client, renderer, nil, publisher, usecase.SystemClock{}, logger)
	default:
		return submission.NewHandler(client, renderer, nil, nil, usecase.SystemClock{}, logger)
	}
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		a.close()
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		a.close()

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) close() {
	if a.db != nil && a.db.Master != nil {
		if err := a.db.Master.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database")
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close producer")
		}
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
