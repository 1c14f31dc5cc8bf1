package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Edge     EdgeConfig
	Resolver ResolverConfig
	Emitter  EmitterConfig
	Tracker  TrackerConfig
	OTel     OTelConfig
}

type AppConfig struct {
	Name    string
	Version string
	Env     string
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers    []string
	ClickTopic string
}

type EdgeConfig struct {
	RedirectStatus int // 301 or 302
}

type ResolverConfig struct {
	LookupTimeout      time.Duration
	MaxAttempts        int
	RetryBase          time.Duration
	RetryMax           time.Duration
	LocalCacheTTL      time.Duration
	LocalCacheEntries  int
	SharedCacheTTL     time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

type EmitterConfig struct {
	BufferSize     int
	EnqueueTimeout time.Duration
}

type TrackerConfig struct {
	SubscriberBuffer  int
	WriteTimeout      time.Duration
	ConnectsPerMinute int
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Name:    GetEnv("APP_NAME", "geolink-edge"),
			Version: GetEnv("APP_VERSION", "0.1.0"),
			Env:     GetEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "geolink"),
		},
		Redis: RedisConfig{
			Enabled:  GetEnvBool("REDIS_ENABLED", true),
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
			PoolSize: GetEnvInt("REDIS_POOL_SIZE", 10),
		},
		Kafka: KafkaConfig{
			Brokers:    SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			ClickTopic: GetEnv("KAFKA_CLICK_TOPIC", "links.clicked"),
		},
		Edge: EdgeConfig{
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Resolver: ResolverConfig{
			LookupTimeout:      GetEnvDuration("RESOLVER_LOOKUP_TIMEOUT", 500*time.Millisecond),
			MaxAttempts:        GetEnvInt("RESOLVER_MAX_ATTEMPTS", 3),
			RetryBase:          GetEnvDuration("RESOLVER_RETRY_BASE_DELAY", 50*time.Millisecond),
			RetryMax:           GetEnvDuration("RESOLVER_RETRY_MAX_DELAY", 400*time.Millisecond),
			LocalCacheTTL:      GetEnvDuration("RESOLVER_LOCAL_CACHE_TTL", 30*time.Second),
			LocalCacheEntries:  GetEnvInt("RESOLVER_LOCAL_CACHE_ENTRIES", 10000),
			SharedCacheTTL:     GetEnvDuration("RESOLVER_SHARED_CACHE_TTL", time.Minute),
			BreakerMaxFailures: GetEnvInt("RESOLVER_BREAKER_MAX_FAILURES", 5),
			BreakerOpenTimeout: GetEnvDuration("RESOLVER_BREAKER_OPEN_TIMEOUT", 10*time.Second),
		},
		Emitter: EmitterConfig{
			BufferSize:     GetEnvInt("EMITTER_BUFFER_SIZE", 1024),
			EnqueueTimeout: GetEnvDuration("EMITTER_ENQUEUE_TIMEOUT", 2*time.Second),
		},
		Tracker: TrackerConfig{
			SubscriberBuffer:  GetEnvInt("TRACKER_SUBSCRIBER_BUFFER", 16),
			WriteTimeout:      GetEnvDuration("TRACKER_WRITE_TIMEOUT", 5*time.Second),
			ConnectsPerMinute: GetEnvInt("TRACKER_CONNECTS_PER_MINUTE", 60),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Edge.RedirectStatus != 301 && cfg.Edge.RedirectStatus != 302 {
		return nil, fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", cfg.Edge.RedirectStatus)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if cfg.Kafka.ClickTopic == "" {
		return nil, fmt.Errorf("KAFKA_CLICK_TOPIC must not be empty")
	}
	if cfg.Resolver.MaxAttempts <= 0 {
		return nil, fmt.Errorf("RESOLVER_MAX_ATTEMPTS must be > 0 (got %d)", cfg.Resolver.MaxAttempts)
	}
	if cfg.Resolver.RetryMax < cfg.Resolver.RetryBase {
		return nil, fmt.Errorf("RESOLVER_RETRY_MAX_DELAY must be >= RESOLVER_RETRY_BASE_DELAY")
	}

	return cfg, nil
}
