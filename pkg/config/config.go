package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = "fabrichouse"
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	AWS          AWSConfig
	Storage      StorageConfig
	Search       SearchConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FABRICHOUSE_APP_ENV" default:"dev"`
	Port         string `envconfig:"FABRICHOUSE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FABRICHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABRICHOUSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FABRICHOUSE_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"FABRICHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABRICHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABRICHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABRICHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: when neither URL nor Address is set the analytics
// cache is disabled and reads go straight to the database.
type RedisConfig struct {
	URL          string        `envconfig:"FABRICHOUSE_REDIS_URL"`
	Address      string        `envconfig:"FABRICHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"FABRICHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FABRICHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FABRICHOUSE_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"FABRICHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FABRICHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FABRICHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`

	SummaryCacheTTL time.Duration `envconfig:"FABRICHOUSE_REDIS_SUMMARY_CACHE_TTL" default:"30s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// AWSConfig gates both Rekognition label detection and S3 blob storage.
// Missing credentials disable the vision fallback without failing startup.
type AWSConfig struct {
	Region          string `envconfig:"FABRICHOUSE_AWS_REGION" default:"us-east-1"`
	AccessKeyID     string `envconfig:"FABRICHOUSE_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"FABRICHOUSE_AWS_SECRET_ACCESS_KEY"`
	SkipRekognition bool   `envconfig:"FABRICHOUSE_SKIP_REKOGNITION" default:"false"`
}

func (a AWSConfig) HasCredentials() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}

const (
	StorageProviderLocal = "local"
	StorageProviderS3    = "s3"
)

// StorageConfig selects the blob backend once at startup.
type StorageConfig struct {
	Provider      string `envconfig:"FABRICHOUSE_STORAGE_PROVIDER" default:"local"`
	LocalDir      string `envconfig:"FABRICHOUSE_STORAGE_LOCAL_DIR" default:"uploads"`
	PublicBaseURL string `envconfig:"FABRICHOUSE_STORAGE_PUBLIC_BASE_URL" default:"/uploads"`
	S3Bucket      string `envconfig:"FABRICHOUSE_STORAGE_S3_BUCKET"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case StorageProviderLocal:
		return nil
	case StorageProviderS3:
		if s.S3Bucket == "" {
			return fmt.Errorf("FABRICHOUSE_STORAGE_S3_BUCKET is required when storage provider is s3")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage provider %q", s.Provider)
	}
}

// SearchConfig carries the two similarity cut-offs. They default to the same
// value but are tuned independently.
type SearchConfig struct {
	HashMinSimilarity   int `envconfig:"FABRICHOUSE_SEARCH_HASH_MIN_SIMILARITY" default:"60"`
	VisionMinSimilarity int `envconfig:"FABRICHOUSE_SEARCH_VISION_MIN_SIMILARITY" default:"60"`

	VisionMaxLabels     int32   `envconfig:"FABRICHOUSE_SEARCH_VISION_MAX_LABELS" default:"20"`
	VisionMinConfidence float32 `envconfig:"FABRICHOUSE_SEARCH_VISION_MIN_CONFIDENCE" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FABRICHOUSE_FEATURE_AUTO_MIGRATE" default:"false"`
}
