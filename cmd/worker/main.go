package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/entity"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/logger/console"
	"github.com/casegraph/backend/pkg/ner"
	"github.com/casegraph/backend/pkg/network"
	"github.com/casegraph/backend/pkg/ocr"
	"github.com/casegraph/backend/pkg/pipeline"
	pgxstore "github.com/casegraph/backend/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init task queue consumer
	que, err := queue.NewRedis(ctx, consumerName())
	if err != nil {
		logger.Fatal("Failed to connect to task queue", "err", err)
	}
	defer que.Close()

	st := pgxstore.New(pgConn)

	nerClient := ner.NewClient(ner.NewClientParams{
		ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		AnalysisModel:   util.GetEnv("AI_CHAT_ANALYZE_MODEL"),
		BaseURL:         util.GetEnv("AI_CHAT_URL"),
		APIKey:          util.GetEnv("AI_CHAT_KEY"),
	})

	svc := pipeline.NewService(pipeline.Params{
		Store:     st,
		Queue:     que,
		Engine:    network.NewEngine(st),
		Resolver:  entity.NewResolver(st, entity.NewNormalizer(nil), util.GetEnvFloat("MATCH_THRESHOLD", 0)),
		Extractor: ocr.NewExtractor(),
		NER:       nerClient,
		Analyzer:  nerClient,

		MaxAttempts: util.GetEnvInt("TASK_MAX_ATTEMPTS", 0),
	})

	concurrency := util.GetEnvInt("WORKER_CONCURRENCY", pipeline.DefaultConcurrency)
	visibility := time.Duration(util.GetEnvInt("TASK_VISIBILITY_SEC", 0)) * time.Second

	pool := pipeline.NewWorkerPool(svc, que, concurrency, visibility)

	logger.Info("Listening for tasks", "concurrency", concurrency)
	if err := pool.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("Worker pool stopped", "err", err)
	}

	metrics := nerClient.GetMetrics()
	logger.Info(
		"AI Metrics",
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
	)
	logger.Info("Worker stopped")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	suffix, err := gonanoid.New(6)
	if err != nil {
		return host
	}
	return fmt.Sprintf("%s-%s", host, suffix)
}
