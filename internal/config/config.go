package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"fraud-viewer/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Render   RenderConfig   `yaml:"render"`
	DB       DBConfig       `yaml:"db"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Minio    MinioConfig    `yaml:"minio"`
	Worker   WorkerConfig   `yaml:"worker"`
	Retry    RetryConfig    `yaml:"retry"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxUploadSize   int64         `yaml:"max_upload_size" env:"SERVER_MAX_UPLOAD_SIZE" env-default:"268435456" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-default:"*"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SERVER_SESSION_TTL" env-default:"24h" validate:"gt=0"`
}

type UpstreamConfig struct {
	BaseURL string `yaml:"base_url" env:"UPSTREAM_BASE_URL" validate:"required,url"`
	// PublicURL is the origin browsers use to reach upstream artifacts; defaults to BaseURL.
	PublicURL string `yaml:"public_url" env:"UPSTREAM_PUBLIC_URL" validate:"omitempty,url"`
	// Timeout of zero leaves requests unbounded.
	Timeout time.Duration `yaml:"timeout" env:"UPSTREAM_TIMEOUT" env-default:"0s" validate:"gte=0"`
}

type RenderConfig struct {
	ChartMode   string `yaml:"chart_mode" env:"RENDER_CHART_MODE" env-default:"auto" validate:"oneof=auto inline image"`
	MatchPolicy string `yaml:"match_policy" env:"RENDER_MATCH_POLICY" env-default:"keywords" validate:"oneof=keywords exact"`
}

type DBConfig struct {
	Enabled         bool          `yaml:"enabled" env:"DB_ENABLED" env-default:"false"`
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"fraud_viewer" validate:"required_if=Enabled true"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"analysis-submissions"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"analysis-archiver-group"`
}

type MinioConfig struct {
	Enabled   bool   `yaml:"enabled" env:"MINIO_ENABLED" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000" validate:"required_if=Enabled true"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"analysis-archive"`
	Region    string `yaml:"region" env:"MINIO_REGION"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"2" validate:"gte=1"`
	ChartWidth  int `yaml:"chart_width" env:"WORKER_CHART_WIDTH" env-default:"800" validate:"gte=0"`
	CaptionSize int `yaml:"caption_size" env:"WORKER_CAPTION_SIZE" env-default:"14" validate:"gte=0"`
	// CaptionColor is "r,g,b" or "r,g,b,a".
	CaptionColor string `yaml:"caption_color" env:"WORKER_CAPTION_COLOR" env-default:"90,90,90"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3" validate:"gte=1"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"200ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

var ErrInvalidConfig = errors.New("invalid config")

// MustLoad reads the config from CONFIG_PATH (YAML) or the environment and validates it.
func MustLoad() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read loads the config without validating it, so callers can apply overrides first.
func Read() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}

func (c *Config) DBDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}
	return u.String()
}

func (c *Config) PublicURL() string {
	if c.Upstream.PublicURL != "" {
		return c.Upstream.PublicURL
	}
	return c.Upstream.BaseURL
}

func (c *Config) ChartMode() domain.ChartMode {
	return domain.ChartMode(c.Render.ChartMode)
}

func (c *Config) MatchPolicy() domain.MatchPolicy {
	return domain.MatchPolicy(c.Render.MatchPolicy)
}
