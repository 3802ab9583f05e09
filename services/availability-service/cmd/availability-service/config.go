package main

import (
	"time"

	"github.com/callslot/callslot/libs/config"
	"github.com/callslot/callslot/services/availability-service/internal/cache"
	"github.com/callslot/callslot/services/availability-service/internal/consumer"
)

type serviceConfig struct {
	Service  string
	Port     string
	GRPCPort string

	DatabaseURL string
	DBMaxConns  int

	Location      *time.Location
	RequireOffset bool
	StoreTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	KafkaBrokers       string
	KafkaGroupID       string
	InvalidationTopics []string

	RateLimitPerMinute int
	RateLimitFailOpen  bool
	CORSOrigins        []string
	RequestTimeout     time.Duration
}

func loadConfig() (serviceConfig, error) {
	var (
		cfg serviceConfig
		err error
	)
	cfg.Service = config.String("SERVICE_NAME", "availability-service")
	if cfg.Port, err = config.Port("PORT", "8080"); err != nil {
		return cfg, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return cfg, err
	}
	if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return cfg, err
	}
	if cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		return cfg, err
	}
	if cfg.Location, err = config.Location("SERVER_TIMEZONE", "UTC"); err != nil {
		return cfg, err
	}
	cfg.RequireOffset = config.Bool("REQUIRE_TIMEZONE_OFFSET", false)
	if cfg.StoreTimeout, err = config.Duration("STORE_TIMEOUT", 3*time.Second); err != nil {
		return cfg, err
	}

	cfg.RedisAddr = config.String("REDIS_ADDR", "")
	cfg.RedisPassword = config.String("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = config.Duration("CACHE_TTL", cache.DefaultTTL); err != nil {
		return cfg, err
	}

	cfg.KafkaBrokers = config.String("KAFKA_BROKERS", "")
	cfg.KafkaGroupID = config.String("KAFKA_GROUP_ID", cfg.Service)
	cfg.InvalidationTopics = config.List("KAFKA_INVALIDATION_TOPICS",
		consumer.TopicIntervalsUpdated+","+consumer.TopicProfileUpdated)

	if cfg.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	cfg.RateLimitFailOpen = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	cfg.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS", "")
	if cfg.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT_SECONDS", 10*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}
