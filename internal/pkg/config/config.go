package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	MaxEventSize int64  `env:"MAX_EVENT_SIZE_BYTES" envDefault:"1048576"` // 1MB

	// Dedup filter settings.
	MaxPeriod         int    `env:"MAX_PERIOD" envDefault:"10"`
	NotificationLevel string `env:"NOTIFICATION_LEVEL" envDefault:"info"`

	WALDir         string `env:"WAL_DIR" envDefault:"./wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`  // 100MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	RedisAddr    string `env:"REDIS_ADDR,required"`
	PostgresURL  string `env:"POSTGRES_URL,required"`
	DLQStreamKey string `env:"DLQ_STREAM_KEY" envDefault:"log_records_dlq"`

	BatchSize    int           `env:"BATCH_SIZE" envDefault:"1000"`
	RetryCount   int           `env:"RETRY_COUNT" envDefault:"3"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"1s"`

	APIKeyCacheTTL     time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`
	PIIRedactionFields string        `env:"PII_REDACTION_FIELDS" envDefault:"email,password,credit_card,ssn"`

	IngestServerAddr  string `env:"INGEST_SERVER_ADDR" envDefault:":8080"`
	MetricsServerAddr string `env:"METRICS_SERVER_ADDR" envDefault:":9091"`
	AdminServerAddr   string `env:"ADMIN_SERVER_ADDR" envDefault:":9092"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
