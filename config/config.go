// Package config loads the settings of the cbs tool from a YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/oracle"
	"github.com/etnz/costbasis/sqlstore"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the whole configuration of the tool.
type Config struct {
	Database sqlstore.Config `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`
	Coinbase CoinbaseConfig  `yaml:"coinbase"`
	Prices   PricesConfig    `yaml:"prices"`
	HTTP     HTTPConfig      `yaml:"http"`
	Log      LogConfig       `yaml:"log"`
}

// RedisConfig enables the distributed account lock when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

// CoinbaseConfig configures the brokerage client.
type CoinbaseConfig struct {
	BaseURL           string  `yaml:"base_url"`
	KeyName           string  `yaml:"key_name"`
	KeyFile           string  `yaml:"key_file"`
	Cutoff            string  `yaml:"cutoff"` // RFC 3339 time or date
	MinBalance        string  `yaml:"min_balance"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// PricesConfig configures the price oracle chain.
type PricesConfig struct {
	CacheTTL time.Duration          `yaml:"cache_ttl"` // zero disables caching
	Breaker  oracle.BreakerSettings `yaml:"breaker"`
	Static   string                 `yaml:"static"` // "BTC=65000,ETH=3000" replaces Coinbase prices
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: sqlstore.DefaultConfig(),
		Redis:    RedisConfig{KeyPrefix: "costbasis:sync:", LockTTL: 5 * time.Minute},
		Coinbase: CoinbaseConfig{KeyFile: "coinbase.pem", RequestsPerSecond: 3},
		Prices:   PricesConfig{CacheTTL: time.Minute},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path, when it exists, then the .env file of
// the working directory, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	// .env never overrides the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	str("COSTBASIS_DB_DRIVER", &cfg.Database.Driver)
	str("COSTBASIS_DB_DSN", &cfg.Database.DSN)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("COINBASE_BASE_URL", &cfg.Coinbase.BaseURL)
	str("COINBASE_KEY_NAME", &cfg.Coinbase.KeyName)
	str("COINBASE_KEY_FILE", &cfg.Coinbase.KeyFile)
	str("CUTOFF_DATE", &cfg.Coinbase.Cutoff)
	str("COSTBASIS_STATIC_PRICES", &cfg.Prices.Static)
	str("COSTBASIS_HTTP_ADDR", &cfg.HTTP.Addr)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := os.LookupEnv("PRICE_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PRICE_CACHE_TTL %q: %w", v, err)
		}
		cfg.Prices.CacheTTL = d
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error
	switch c.Database.Driver {
	case sqlstore.Postgres, sqlstore.SQLite:
	default:
		errs = errors.Join(errs, fmt.Errorf("database.driver must be %q or %q, got %q", sqlstore.Postgres, sqlstore.SQLite, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = errors.Join(errs, errors.New("database.dsn is required"))
	}
	if _, err := c.Coinbase.CutoffTime(); err != nil {
		errs = errors.Join(errs, err)
	}
	if c.Coinbase.RequestsPerSecond <= 0 {
		errs = errors.Join(errs, errors.New("coinbase.requests_per_second must be positive"))
	}
	if c.Prices.CacheTTL < 0 {
		errs = errors.Join(errs, errors.New("prices.cache_ttl must not be negative"))
	}
	return errs
}

// CutoffTime parses Cutoff; the zero time means no cutoff.
func (c CoinbaseConfig) CutoffTime() (time.Time, error) {
	if c.Cutoff == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, c.Cutoff); err == nil {
		return t, nil
	}
	d, err := date.Parse(c.Cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid coinbase cutoff %q: want an RFC 3339 time or a date", c.Cutoff)
	}
	return d.Start(), nil
}
