package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	vtonapi "github.com/vtonlab/vton-service/internal/api/handlers/vton"
	"github.com/vtonlab/vton-service/internal/api/router"
	"github.com/vtonlab/vton-service/internal/api/server"
	"github.com/vtonlab/vton-service/internal/config"
	"github.com/vtonlab/vton-service/internal/fetch"
	"github.com/vtonlab/vton-service/internal/inference"
	"github.com/vtonlab/vton-service/internal/infra/kafka/consumer"
	"github.com/vtonlab/vton-service/internal/infra/kafka/producer"
	jobrepo "github.com/vtonlab/vton-service/internal/repository/job"
	vtonsvc "github.com/vtonlab/vton-service/internal/service/vton"
	"github.com/vtonlab/vton-service/internal/storage/cloud"
	"github.com/vtonlab/vton-service/internal/worker"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	// Collect slave DSNs for replica connections.
	slaveDNSs := make([]string, 0, len(cfg.Database.Slaves))

	for _, s := range cfg.Database.Slaves {
		slaveDNSs = append(slaveDNSs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDNSs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Retry strategy for queue transport calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize result storage (MinIO).
	storage, err := cloud.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Pipeline collaborators: image fetcher, model runner client, job
	// repository, queue producer.
	fetcher := fetch.New(cfg.Fetcher.Timeout, cfg.Fetcher.MaxBodyBytes, "")
	invoker := inference.New(cfg.Inference.BaseURL, cfg.Inference.Timeout)
	repo := jobrepo.NewRepository(db)
	p := producer.New(&cfg.Kafka, strategy)
	service := vtonsvc.NewService(fetcher, invoker, storage, repo, p)

	// Queue entry handler for try-on jobs.
	jobWorker := worker.New(service, repo)

	// HTTP handler for try-on routes.
	h := vtonapi.NewHandler(service)

	// Queue consumer driving the worker.
	c := consumer.New(&cfg.Kafka, strategy, jobWorker)

	// Start the consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(h)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for the consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	// Close queue producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
