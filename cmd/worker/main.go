package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	activitymetrics "vowly/internal/activity/metrics"
	"vowly/internal/activity/pipeline"
	"vowly/internal/app"
	"vowly/internal/platform/config"
	"vowly/internal/platform/httpserver"
	"vowly/internal/platform/kafka"
	"vowly/internal/platform/kafka/consumer"
	"vowly/internal/platform/logger"
	"vowly/internal/platform/metrics"
	"vowly/internal/platform/redis"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vowly worker: %v\n", err)
		os.Exit(1)
	}
}

// run consumes the activity topic written by the Kafka lane and persists
// each record with the same retry and breaker policy as the in-process
// workers.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, flush, err := logger.New(logger.Config{
		ServiceName: "vowly-worker",
		Environment: cfg.Environment,
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	defer func() { _ = flush() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MarkStarted("worker", version)
	m := activitymetrics.New()

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer func() { _ = rc.Close() }()
	}
	breaker := app.NewBreaker(cfg.Activity.Breaker, rc, log, m)

	store, sqlDB, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if sqlDB != nil {
		defer func() { _ = sqlDB.Close() }()
	}

	admin, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		return err
	}
	err = kafka.EnsureTopic(ctx, admin.Client(), app.ActivityTopic(cfg.Kafka))
	admin.Close()
	if err != nil {
		return err
	}

	worker := app.NewWorker(cfg.Activity, store, breaker, log, m)
	c, err := consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Group:   cfg.Kafka.ConsumerGroup,
		Topics:  []string{cfg.Kafka.Topic},
	}, pipeline.NewKafkaHandler(worker, log), log)
	if err != nil {
		return err
	}
	defer c.Close()

	router := chi.NewRouter()
	router.Handle("/metrics", metrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting activity worker",
			"topic", cfg.Kafka.Topic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		return c.Run(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, 5*time.Second)
	})
	return g.Wait()
}
