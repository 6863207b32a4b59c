package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Session store kinds.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment" env:"APP_ENV, overwrite"`
	Version     string `yaml:"version"`
}

// BackendConfig points at the hotel REST API and the payments endpoint.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BACKEND_BASE_URL, overwrite"`
	PaymentsURL string        `yaml:"payments_url" env:"PAYMENTS_URL, overwrite"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port          int             `yaml:"port" env:"PORT, overwrite"`
	SessionCookie string          `yaml:"session_cookie"`
	SecureCookie  bool            `yaml:"secure_cookie"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	LoginAttempts int             `yaml:"login_attempts"`
	LoginWindow   time.Duration   `yaml:"login_window"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SessionConfig struct {
	Store         string        `yaml:"store" env:"SESSION_STORE, overwrite"`
	CredentialTTL time.Duration `yaml:"credential_ttl"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH, overwrite"`
}

type RedisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS, overwrite"`
	Password string `yaml:"password" env:"REDIS_PASSWORD, overwrite"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	RoomsTTL time.Duration `yaml:"rooms_ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL, overwrite"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads the YAML file, expands ${VAR} references, overlays the environment and validates.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if err := envconfig.Process(context.Background(), &config); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if err := validateHTTPURL(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend base_url: %w", err)
	}
	if c.Backend.PaymentsURL != "" {
		if err := validateHTTPURL(c.Backend.PaymentsURL); err != nil {
			return fmt.Errorf("backend payments_url: %w", err)
		}
	}

	switch c.Session.Store {
	case StoreSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite session store")
		}
	case StoreRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for the redis session store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is empty")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hotelfront"
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.PaymentsURL == "" && c.Backend.BaseURL != "" {
		c.Backend.PaymentsURL = c.Backend.BaseURL + "/payments/create-payment-intent"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10 * time.Second
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = "hf_session"
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst <= 0 {
		c.Server.RateLimit.Burst = 5
	}
	if c.Server.LoginAttempts == 0 {
		c.Server.LoginAttempts = 10
	}
	if c.Server.LoginWindow <= 0 {
		c.Server.LoginWindow = time.Minute
	}

	if c.Session.Store == "" {
		c.Session.Store = StoreSQLite
	}
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	if c.Session.IdleTimeout <= 0 {
		c.Session.IdleTimeout = 30 * time.Minute
	}
	if c.Session.Store == StoreSQLite && c.Database.Path == "" {
		c.Database.Path = "data/hotelfront.db"
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
