package main

import (
	"context"
	"os"
	"time"

	"pointsledger/internal/amqp"
	"pointsledger/internal/cli"
	"pointsledger/internal/log"
	"pointsledger/internal/storage"
	"pointsledger/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting journal worker")
	cli.MustValidate(logger, cfg.ValidateWorker)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Journal database ready", "path", cfg.SQLiteDBPath, "schema_version", repo.SchemaVersion())

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewJournalWorker(repo, client, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		s := w.Stats()
		logger.Info("Journal worker totals", "stored", s.Stored, "failed", s.Failed, "unhealthy", s.Unhealthy)
	})

	if err := w.Run(ctx); err != nil {
		logger.Error("Journal worker failed", log.FieldError, err)
		os.Exit(1)
	}
	<-done
}
