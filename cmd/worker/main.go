package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/uzsteam/xmlator/internal/archive"
	"github.com/uzsteam/xmlator/internal/config"
	"github.com/uzsteam/xmlator/internal/database"
	"github.com/uzsteam/xmlator/internal/dataset"
	"github.com/uzsteam/xmlator/internal/eventlog"
	"github.com/uzsteam/xmlator/internal/generator"
	"github.com/uzsteam/xmlator/internal/message"
	"github.com/uzsteam/xmlator/internal/refgen"
	"github.com/uzsteam/xmlator/internal/repository"
	"github.com/uzsteam/xmlator/internal/router"
	"github.com/uzsteam/xmlator/internal/s3storage"
	"github.com/uzsteam/xmlator/internal/schema"
	"github.com/uzsteam/xmlator/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.RedisAddr == "" {
		log.Fatalf("XMLATOR_REDIS_ADDR must be set for the worker")
	}

	source, err := dataset.FileSource(cfg.DatasetPath)
	if err != nil {
		log.Fatalf("dataset source: %v", err)
	}
	registry := dataset.NewRegistry(source)
	composer := message.NewComposer(refgen.New())
	routes := router.New(cfg.OutputRoot)
	schemas := schema.NewStore(cfg.SchemaDir)
	events := eventlog.New(cfg.EventLogPath)
	archiver := archive.New(cfg.DownloadsDir, archive.Limits{
		MaxFiles:      cfg.ZipMaxFiles,
		MaxFileBytes:  cfg.ZipMaxFileBytes,
		MaxTotalBytes: cfg.ZipMaxTotalBytes,
	})

	var sink generator.EventSink
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		sink = repository.NewEventRepository(pool)
	}
	var store *s3storage.Storage
	if cfg.S3Endpoint != "" {
		store, err = s3storage.New(cfg)
		if err != nil {
			log.Fatalf("init storage: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("ensure bucket: %v", err)
		}
	}

	service := generator.New(registry, composer, routes, schemas, events, sink)
	processor := worker.NewProcessor(service, archiver, store, cfg.Workers)

	asynqServer := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Workers,
	})

	go func() {
		<-ctx.Done()
		asynqServer.Shutdown()
	}()

	if err := asynqServer.Run(processor.Handler()); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
