package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `env:", prefix=SERVER_"`
	MySQL     MySQLConfig     `env:", prefix=MYSQL_"`
	Redis     RedisConfig     `env:", prefix=REDIS_"`
	NATS      NATSConfig      `env:", prefix=NATS_"`
	Providers ProvidersConfig `env:", prefix=PROVIDERS_"`
	Refresh   RefreshConfig   `env:", prefix=REFRESH_"`
	Security  SecurityConfig  `env:", prefix=SECURITY_"`
	Logging   LoggingConfig   `env:", prefix=LOG_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT, default=120s"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host            string        `env:"HOST, default=localhost"`
	Port            int           `env:"PORT, default=3306"`
	Database        string        `env:"DATABASE, default=assetpulse"`
	User            string        `env:"USER, default=assetpulse"`
	Password        string        `env:"PASSWORD, default=assetpulse123"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME, default=5m"`
}

// RedisConfig holds Redis configuration, used only when the Redis cache
// backend is selected.
type RedisConfig struct {
	Host         string        `env:"HOST, default=localhost"`
	Port         int           `env:"PORT, default=6379"`
	Password     string        `env:"PASSWORD"`
	DB           int           `env:"DB, default=0"`
	PoolSize     int           `env:"POOL_SIZE, default=10"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=3s"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled       bool          `env:"ENABLED, default=false"`
	URL           string        `env:"URL, default=nats://localhost:4222"`
	MaxReconnect  int           `env:"MAX_RECONNECT, default=10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT, default=2s"`
}

// ProvidersConfig holds upstream market-data provider configuration
type ProvidersConfig struct {
	AlphaVantageKey string        `env:"ALPHA_VANTAGE_KEY"`
	AlphaVantageURL string        `env:"ALPHA_VANTAGE_URL, default=https://www.alphavantage.co/query"`
	CoinGeckoKey    string        `env:"COINGECKO_KEY"`
	CoinGeckoURL    string        `env:"COINGECKO_URL, default=https://api.coingecko.com/api/v3"`
	YahooURL        string        `env:"YAHOO_URL, default=https://query1.finance.yahoo.com/v8/finance/chart"`
	ExchangeRateURL string        `env:"EXCHANGE_RATE_URL, default=https://open.er-api.com/v6/latest/USD"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT, default=8s"`
}

// RefreshConfig holds refresh pipeline configuration
type RefreshConfig struct {
	CacheBackend   string        `env:"CACHE_BACKEND, default=memory"`
	CacheTTL       time.Duration `env:"CACHE_TTL, default=300s"`
	DailyQuota     int           `env:"DAILY_QUOTA, default=20"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS, default=3"`
	BackoffBase    time.Duration `env:"BACKOFF_BASE, default=60s"`
	PacingInterval time.Duration `env:"PACING_INTERVAL, default=15s"`
	FallbackFXRate float64       `env:"FALLBACK_FX_RATE, default=83.5"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	CORSEnabled bool     `env:"CORS_ENABLED, default=true"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`
	CORSMethods []string `env:"CORS_METHODS, default=GET,POST,PATCH,DELETE,OPTIONS"`
	CORSHeaders []string `env:"CORS_HEADERS, default=*"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=json"`
	Output string `env:"OUTPUT, default=stdout"`
}

// Load loads configuration from environment variables using go-envconfig
func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.MySQL.Host == "" {
		return fmt.Errorf("MySQL host is required")
	}

	switch c.Refresh.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Refresh.CacheBackend)
	}

	if c.Refresh.CacheBackend == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("Redis host is required for the redis cache backend")
	}

	if c.Refresh.MaxAttempts <= 0 {
		return fmt.Errorf("refresh max attempts must be positive")
	}

	return nil
}

// GetMySQLDSN returns MySQL DSN string
func (c *Config) GetMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.Database,
	)
}

// GetRedisAddr returns Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetServerAddr returns server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
