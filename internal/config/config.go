package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service    Service
	ClickHouse ClickHouse
	Predictor  Predictor
}

type Service struct {
	Environment        string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	LogLevel           string `envconfig:"SERVICE_LOG_LEVEL" default:"info"`
	APIPort            string `envconfig:"SERVICE_API_PORT" default:"8000"`
	Host               string `envconfig:"SERVICE_HOST" default:"localhost:8000"`
	DefaultLimit       int    `envconfig:"SERVICE_DEFAULT_LIMIT" default:"100"`
	MaxLimit           int    `envconfig:"SERVICE_MAX_LIMIT" default:"1000"`
	QueryTimeoutSec    int    `envconfig:"SERVICE_QUERY_TIMEOUT_SEC" default:"30"`
	ShutdownTimeoutSec int    `envconfig:"SERVICE_SHUTDOWN_TIMEOUT_SEC" default:"15"`
	RateLimitPerMinute int    `envconfig:"SERVICE_RATE_LIMIT_PER_MINUTE" default:"120"`
	RateLimitBurst     int    `envconfig:"SERVICE_RATE_LIMIT_BURST" default:"20"`
}

type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port            string `envconfig:"CLICKHOUSE_PORT" required:"true"`
	Database        string `envconfig:"CLICKHOUSE_DB" required:"true"`
	User            string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
	EventsTable     string `envconfig:"CLICKHOUSE_EVENTS_TABLE" default:"events"`
	CrimesTable     string `envconfig:"CLICKHOUSE_CRIMES_TABLE" default:"uk_crime_data"`
}

type Predictor struct {
	BaseURL    string `envconfig:"PREDICTOR_BASE_URL" required:"true"`
	Project    string `envconfig:"PREDICTOR_PROJECT" default:"mindsdb"`
	Model      string `envconfig:"PREDICTOR_MODEL" default:"uk_crime_predictor"`
	Target     string `envconfig:"PREDICTOR_TARGET" default:"CRIME_TYPE"`
	TimeoutSec int    `envconfig:"PREDICTOR_TIMEOUT_SEC" default:"30"`
}

// Loader configures the bulk crime data loader
type Loader struct {
	Service    LoaderService
	ClickHouse ClickHouse
	Batch      LoaderBatch
}

type LoaderService struct {
	Environment string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"SERVICE_LOG_LEVEL" default:"info"`
}

type LoaderBatch struct {
	BatchSize       int `envconfig:"LOADER_BATCH_SIZE" default:"5000"`
	FlushTimeoutSec int `envconfig:"LOADER_FLUSH_TIMEOUT_SEC" default:"5"`
	BufferSize      int `envconfig:"LOADER_BUFFER_SIZE" default:"1000"`
}

// QueryTimeout returns the per-query warehouse timeout
func (s Service) QueryTimeout() time.Duration {
	return time.Duration(s.QueryTimeoutSec) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget
func (s Service) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSec) * time.Second
}

// Timeout returns the per-batch prediction timeout
func (p Predictor) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// FlushTimeout returns the loader's maximum batch age
func (b LoaderBatch) FlushTimeout() time.Duration {
	return time.Duration(b.FlushTimeoutSec) * time.Second
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Service.DefaultLimit <= 0 || cfg.Service.MaxLimit < cfg.Service.DefaultLimit {
		return nil, fmt.Errorf("invalid limits: default %d, max %d", cfg.Service.DefaultLimit, cfg.Service.MaxLimit)
	}

	return &cfg, nil
}

// LoadLoader reads the configuration needed by the bulk loader
func LoadLoader() (*Loader, error) {
	var cfg Loader
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process loader config: %w", err)
	}

	if cfg.Batch.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid loader batch size %d", cfg.Batch.BatchSize)
	}

	return &cfg, nil
}
