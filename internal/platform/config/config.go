package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server   Server
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Cases    CasesConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects the Postgres case registry. An empty URL selects the in-memory registry.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig selects the Redis sequence counter. An empty URL selects the in-memory counter.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the Kafka emitter. No brokers selects the in-memory emitter.
type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	NotificationTopic string
	ConsumerGroup     string
	Partitions        int32
	ReplicationFactor int16
}

type CasesConfig struct {
	SequenceTTL time.Duration
}

// SequenceTTL bounds the lifetime of a monthly counter key so old months expire.
var SequenceTTL = 400 * 24 * time.Hour

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:            envOr("CASEFLOW_ADDR", ":8080"),
			JWTSigningKey:   jwtSigningKey,
			JWTIssuer:       os.Getenv("JWT_ISSUER"),
			JWTAudience:     os.Getenv("JWT_AUDIENCE"),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           envList("KAFKA_BROKERS"),
			AuditTopic:        envOr("KAFKA_AUDIT_TOPIC", "case-events"),
			NotificationTopic: envOr("KAFKA_NOTIFICATION_TOPIC", "case-notifications"),
			ConsumerGroup:     envOr("KAFKA_CONSUMER_GROUP", "caseflow-audit"),
			Partitions:        int32(envInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(envInt("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Cases: CasesConfig{
			SequenceTTL: envDuration("CASE_SEQUENCE_TTL", SequenceTTL),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
