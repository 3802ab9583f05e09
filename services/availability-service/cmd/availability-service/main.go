package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/callslot/callslot/libs/config"
	"github.com/callslot/callslot/libs/db"
	"github.com/callslot/callslot/libs/httpx"
	"github.com/callslot/callslot/libs/kafkax"
	otelx "github.com/callslot/callslot/libs/otel"
	"github.com/callslot/callslot/libs/runtime"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/callslot/callslot/services/availability-service/internal/cache"
	"github.com/callslot/callslot/services/availability-service/internal/consumer"
	"github.com/callslot/callslot/services/availability-service/internal/handlers"
	"github.com/callslot/callslot/services/availability-service/internal/metrics"
	"github.com/callslot/callslot/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		panic(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}
	metrics.Register()

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        int32(cfg.DBMaxConns),
		ApplicationName: cfg.Service,
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var users availability.UserDirectory = storage.NewUserRepository(pool)
	var intervals availability.WeeklyAvailabilityStore = storage.NewIntervalRepository(pool)
	bookings := storage.NewSchedulingRepository(pool)

	var rdb *redis.Client
	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		userCache := cache.NewUsers(users, rdb, cfg.CacheTTL, logger)
		intervalCache := cache.NewIntervals(intervals, rdb, cfg.CacheTTL, logger)
		users, intervals = userCache, intervalCache
		readyChecks = append(readyChecks, runtime.ReadyCheck{
			Name:     "redis",
			Check:    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})

		if cfg.KafkaBrokers != "" {
			startInvalidation(ctx, logger, cfg, cache.Invalidator{Users: userCache, Intervals: intervalCache})
		}
	}
	if cfg.KafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{
			Name:     "kafka",
			Check:    kafkax.ReadyCheck(cfg.KafkaBrokers),
			Optional: true,
		})
	}

	engine := availability.NewEngine(users, intervals, bookings, availability.Options{
		Location:     cfg.Location,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})

	if err := startGrpcServer(ctx, logger, cfg, engine); err != nil {
		logger.Error("grpc server init failed", "err", err)
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler())

	api := http.NewServeMux()
	handlers.NewAvailabilityHandler(engine, logger, cfg.RequireOffset).Register(api)
	mux.Handle("/api/", httpx.Chain(api,
		rateLimit(logger, cfg, rdb),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(cfg.RequestTimeout),
	))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.PublicReadPolicy(cfg.CORSOrigins, 10*time.Minute)),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "server_timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	if err := runtime.Shutdown(10*time.Second, srv.Shutdown, otelShutdown); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimit shares the quota through Redis when it is configured.
func rateLimit(logger *slog.Logger, cfg serviceConfig, rdb *redis.Client) httpx.Middleware {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "avail:rl").
			Middleware(logger, cfg.RateLimitFailOpen)
	}
	return httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
}

func startInvalidation(ctx context.Context, logger *slog.Logger, cfg serviceConfig, inv cache.Invalidator) {
	handler := consumer.InvalidationHandler(inv, logger)
	for _, topic := range cfg.InvalidationTopics {
		c := consumer.New(logger, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
		logger.Info("invalidation consumer started", "topic", topic)
	}
}
