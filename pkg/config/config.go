package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Chat    ChatConfig
	Storage StorageConfig
	Redis   RedisConfig
	Feed    FeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Chat.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"THRIFTGRAM_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"THRIFTGRAM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THRIFTGRAM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string `envconfig:"THRIFTGRAM_API_BASE_URL" default:"http://localhost:8000/api"`

	// Timeout is deliberately generous: the hosted backend cold-starts and
	// can take tens of seconds to answer the first request after idling.
	Timeout       time.Duration `envconfig:"THRIFTGRAM_API_TIMEOUT" default:"90s"`
	SlowThreshold time.Duration `envconfig:"THRIFTGRAM_API_SLOW_THRESHOLD" default:"5s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api base url must be http(s), got %q", a.BaseURL)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	return nil
}

type ChatConfig struct {
	// PushEnabled selects the websocket stream; when false the client falls
	// back to interval polling of the active conversation.
	PushEnabled  bool          `envconfig:"THRIFTGRAM_CHAT_PUSH_ENABLED" default:"false"`
	SocketURL    string        `envconfig:"THRIFTGRAM_CHAT_SOCKET_URL"`
	PollInterval time.Duration `envconfig:"THRIFTGRAM_CHAT_POLL_INTERVAL" default:"5s"`
}

func (c ChatConfig) validate() error {
	if c.PushEnabled && strings.TrimSpace(c.SocketURL) == "" {
		return fmt.Errorf("chat socket url is required when push is enabled")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("chat poll interval must be positive")
	}
	return nil
}

type StorageConfig struct {
	Driver string `envconfig:"THRIFTGRAM_STORAGE_DRIVER" default:"file"`
	// Dir is the root directory for the file driver and the parent of the
	// sqlite database file for the sqlite driver.
	Dir string `envconfig:"THRIFTGRAM_STORAGE_DIR" default:".thriftgram"`
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageDriverFile, StorageDriverSQLite, StorageDriverRedis, StorageDriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"THRIFTGRAM_REDIS_URL"`
	Address      string        `envconfig:"THRIFTGRAM_REDIS_ADDR"`
	Password     string        `envconfig:"THRIFTGRAM_REDIS_PASSWORD"`
	DB           int           `envconfig:"THRIFTGRAM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THRIFTGRAM_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"THRIFTGRAM_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"THRIFTGRAM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THRIFTGRAM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THRIFTGRAM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeedConfig struct {
	PageSize int `envconfig:"THRIFTGRAM_FEED_PAGE_SIZE" default:"20"`
}
