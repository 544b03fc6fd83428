package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vowly/internal/access"
	"vowly/internal/activity/capture"
	"vowly/internal/activity/gormhook"
	activityhandler "vowly/internal/activity/handler"
	activitymetrics "vowly/internal/activity/metrics"
	"vowly/internal/activity/pipeline"
	"vowly/internal/activity/query"
	"vowly/internal/app"
	jwttoken "vowly/internal/jwt_token"
	"vowly/internal/platform/config"
	"vowly/internal/platform/gormdb"
	"vowly/internal/platform/httpserver"
	"vowly/internal/platform/kafka"
	"vowly/internal/platform/logger"
	"vowly/internal/platform/metrics"
	"vowly/internal/platform/redis"
	"vowly/internal/wedding"
	authmw "vowly/pkg/platform/middleware/auth"
	"vowly/pkg/platform/middleware/metadata"
	"vowly/pkg/platform/middleware/requesttime"
)

var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vowly server: %v\n", err)
		os.Exit(1)
	}
}

// run wires the activity pipeline behind the HTTP API and keeps the
// lifecycle in one errgroup: the server stops first, then the lane closes
// and workers drain what was accepted.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, flush, err := logger.New(logger.Config{
		ServiceName: "vowly-server",
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

	metrics.MarkStarted("server", version)
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

	registry := wedding.DefaultRegistry(cfg.Activity)
	worker := app.NewWorker(cfg.Activity, store, breaker, log, m)

	d, err := newDispatch(ctx, cfg, worker, breaker, log, m)
	if err != nil {
		return err
	}

	p := pipeline.New(d.lane, breaker, registry.Events(),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(m),
		pipeline.WithEnabled(cfg.Activity.Enabled),
	)
	observer := pipeline.NewObserver(capture.NewCapturer(registry), p, log, m)

	db, err := openDB(sqlDB)
	if err != nil {
		return err
	}
	if err := db.Use(gormhook.New(observer)); err != nil {
		return fmt.Errorf("install activity hooks: %w", err)
	}

	authorizer, err := access.NewAuthorizer()
	if err != nil {
		return err
	}
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)
	activityAPI := activityhandler.New(query.New(store, registry.Events(), query.WithLogger(log)), authorizer, log)
	weddingAPI := wedding.NewHandler(wedding.NewService(db, observer), log)

	router := newRouter(jwtService, activityAPI, weddingAPI, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting vowly server",
			"addr", cfg.Server.Addr,
			"lane", string(cfg.Activity.Lane),
			"activity_enabled", cfg.Activity.Enabled,
		)
		err := httpserver.Run(gctx, srv, shutdownGrace)
		d.close()
		return err
	})
	for _, fn := range d.background {
		g.Go(fn)
	}
	return g.Wait()
}

// dispatch is the lane plus whatever must run or close alongside it.
type dispatch struct {
	lane       pipeline.Lane
	background []func() error
	close      func()
}

func newDispatch(ctx context.Context, cfg config.Config, worker *pipeline.Worker, gate pipeline.Gate, log *slog.Logger, m *activitymetrics.Metrics) (dispatch, error) {
	if cfg.Activity.Lane == config.LaneKafka {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return dispatch{}, err
		}
		if err := kafka.EnsureTopic(ctx, producer.Client(), app.ActivityTopic(cfg.Kafka)); err != nil {
			producer.Close()
			return dispatch{}, err
		}
		lane := pipeline.NewKafkaLane(producer, cfg.Kafka.Topic, int64(cfg.Activity.LaneBuffer),
			pipeline.WithDeliveryGate(gate),
			pipeline.WithKafkaLogger(log),
			pipeline.WithKafkaMetrics(m),
		)
		return dispatch{lane: lane, close: producer.Close}, nil
	}

	lane := pipeline.NewChannelLane(cfg.Activity.LaneBuffer)
	// Workers outlive the request context so a closed lane drains fully.
	workerCtx := context.WithoutCancel(ctx)
	d := dispatch{lane: lane, close: lane.Close}
	for i := 0; i < cfg.Activity.Workers; i++ {
		d.background = append(d.background, func() error {
			return worker.Run(workerCtx, lane.Records())
		})
	}
	return d, nil
}

// openDB shares the activity pool when Postgres is configured. Local runs
// get a migrated in-memory database.
func openDB(sqlDB *sql.DB) (*gorm.DB, error) {
	if sqlDB != nil {
		return gormdb.Open(sqlDB)
	}
	return gormdb.OpenInMemory(wedding.Models()...)
}

func newRouter(validator authmw.TokenValidator, activityAPI *activityhandler.Handler, weddingAPI *wedding.Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalActor(validator))
		weddingAPI.RegisterGuest(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireActor(validator, log))
		weddingAPI.RegisterOwner(r)
		activityAPI.Register(r)
	})
	return r
}

