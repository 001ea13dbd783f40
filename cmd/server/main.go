package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"caseflow/internal/cases/audit"
	"caseflow/internal/cases/events"
	casehandler "caseflow/internal/cases/handler"
	casemetrics "caseflow/internal/cases/metrics"
	"caseflow/internal/cases/sequence"
	"caseflow/internal/cases/service"
	"caseflow/internal/cases/store"
	jwttoken "caseflow/internal/jwt_token"
	"caseflow/internal/platform/config"
	"caseflow/internal/platform/httpserver"
	"caseflow/internal/platform/kafka"
	"caseflow/internal/platform/kafka/consumer"
	"caseflow/internal/platform/kafka/producer"
	"caseflow/internal/platform/logger"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/platform/postgres"
	"caseflow/internal/platform/redis"
	"caseflow/pkg/platform/httputil"
	"caseflow/pkg/platform/middleware/auth"
	"caseflow/pkg/platform/middleware/metadata"
	request "caseflow/pkg/platform/middleware/request"
	"caseflow/pkg/platform/middleware/requesttime"
)

// main wires infrastructure, the case service and the HTTP router. Every
// backing service is optional; an unset URL falls back to the in-memory variant.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	for _, run := range app.background {
		go func() {
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("background worker stopped", "error", err)
			}
		}()
	}

	srv := httpserver.New(cfg.Server.Addr, app.router)
	log.Info("starting caseflow", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("caseflow stopped")
}

type application struct {
	router     http.Handler
	background []func(context.Context) error
	closers    []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type healthCheck func(ctx context.Context) error

func build(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*application, error) {
	app := &application{}
	checks := map[string]healthCheck{}
	caseMetrics := casemetrics.New(reg)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	var (
		caseStore  service.CaseStore
		auditStore audit.Store
	)
	if db != nil {
		app.closers = append(app.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db, log); err != nil {
			app.close()
			return nil, err
		}
		caseStore = store.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		checks["postgres"] = dbCheck(db)
		log.Info("using postgres case registry")
	} else {
		caseStore = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory case registry")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		app.close()
		return nil, err
	}
	var counter sequence.Counter
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		counter = sequence.NewRedisCounter(redisClient)
		checks["redis"] = redisClient.Health
		log.Info("using redis sequence counter")
	} else {
		counter = sequence.NewInMemoryCounter()
		log.Warn("REDIS_URL not set, using in-memory sequence counter")
	}

	recorder := audit.NewHandler(auditStore, log, audit.WithMetrics(caseMetrics))

	var emitter events.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaEmitter, err := wireKafka(ctx, app, cfg.Kafka, log, caseMetrics, recorder)
		if err != nil {
			app.close()
			return nil, err
		}
		emitter = kafkaEmitter.emitter
		checks["kafka"] = kafkaEmitter.health
		log.Info("using kafka case events", "brokers", cfg.Kafka.Brokers)
	} else {
		emitter = localEmitter(recorder)
		log.Warn("KAFKA_BROKERS not set, recording case events in-process")
	}

	caseService := service.New(caseStore, sequence.NewAllocator(counter, cfg.Cases.SequenceTTL),
		service.WithLogger(log),
		service.WithMetrics(caseMetrics),
		service.WithEmitter(emitter),
		service.WithHistory(auditStore),
	)

	app.router = newRouter(cfg, log, reg, caseService, checks)
	return app, nil
}

// localEmitter delivers events straight to the audit recorder. The recorder
// persists them, so the emitter itself retains nothing.
func localEmitter(recorder *audit.Handler) *events.InMemoryEmitter {
	return events.NewInMemoryEmitter(recorder.Record)
}

type kafkaWiring struct {
	emitter *events.KafkaEmitter
	health  healthCheck
}

func wireKafka(ctx context.Context, app *application, cfg config.KafkaConfig, log *slog.Logger, m *casemetrics.Metrics, recorder *audit.Handler) (*kafkaWiring, error) {
	producerClient, err := kafka.NewClient(ctx, cfg.Brokers)
	if err != nil {
		return nil, err
	}
	if err := kafka.EnsureTopics(ctx, producerClient, cfg.Partitions, cfg.ReplicationFactor, cfg.AuditTopic, cfg.NotificationTopic); err != nil {
		producerClient.Close()
		return nil, err
	}
	pub := producer.New(producerClient, log)
	app.closers = append(app.closers, pub.Close)

	router := consumer.NewRouter(log, nil)
	router.Register(cfg.AuditTopic, recorder)

	consumerClient, err := kafka.NewClient(ctx, cfg.Brokers, consumer.ClientOptions(cfg.ConsumerGroup, router.Topics()...)...)
	if err != nil {
		return nil, err
	}
	auditConsumer := consumer.New(consumerClient, router, log)
	app.closers = append(app.closers, auditConsumer.Close)
	app.background = append(app.background, auditConsumer.Run)

	emitter := events.NewKafkaEmitter(pub, cfg.AuditTopic, cfg.NotificationTopic,
		events.WithLogger(log),
		events.WithMetrics(m),
	)
	return &kafkaWiring{emitter: emitter, health: pub.Health}, nil
}

func newRouter(cfg config.Config, log *slog.Logger, reg prometheus.Registerer, svc casehandler.Service, checks map[string]healthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(metrics.New(reg).Middleware)

	r.Get("/healthz", healthHandler(checks))
	r.Handle("/metrics", metrics.Handler())

	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(validator, log))
		casehandler.New(svc, log).Register(r)
	})
	return r
}

func healthHandler(checks map[string]healthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = "down"
				continue
			}
			result[name] = "up"
		}
		httputil.WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": result})
	}
}

func dbCheck(db *sql.DB) healthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
