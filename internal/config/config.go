// Package config loads process configuration from a YAML file with
// environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full process configuration.
type Config struct {
	Bitfinex BitfinexConfig `yaml:"bitfinex"`
	HTTP     HTTPConfig     `yaml:"http"`
	Polling  PollingConfig  `yaml:"polling"`
	Trade    TradeConfig    `yaml:"trade"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BitfinexConfig carries venue credentials and routing.
type BitfinexConfig struct {
	HTTPURL   string `yaml:"http_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	// OrderDestination selects where order flow is routed. Order entry on
	// this gateway is live only when it names "Bitfinex"; market data and
	// positions always run.
	OrderDestination string `yaml:"order_destination"`
}

// HTTPConfig tunes the shared transport.
type HTTPConfig struct {
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond int      `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

// PollingConfig sets the sub-gateway poll intervals.
type PollingConfig struct {
	BookInterval        Duration `yaml:"book_interval"`
	TradesInterval      Duration `yaml:"trades_interval"`
	OrderStatusInterval Duration `yaml:"order_status_interval"`
	PositionInterval    Duration `yaml:"position_interval"`
}

// TradeConfig selects the instrument.
type TradeConfig struct {
	Base  string `yaml:"base"`
	Quote string `yaml:"quote"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML file at path, overlays environment variables and
// applies defaults. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BFX_HTTP_URL"); v != "" {
		c.Bitfinex.HTTPURL = v
	}
	if v := os.Getenv("BFX_API_KEY"); v != "" {
		c.Bitfinex.APIKey = v
	}
	if v := os.Getenv("BFX_API_SECRET"); v != "" {
		c.Bitfinex.APISecret = v
	}
	if v := os.Getenv("BFX_ORDER_DESTINATION"); v != "" {
		c.Bitfinex.OrderDestination = v
	}
}

func (c *Config) applyDefaults() {
	if c.Bitfinex.HTTPURL == "" {
		c.Bitfinex.HTTPURL = "https://api.bitfinex.com/v1"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = Duration(5 * time.Second)
	}
	if c.HTTP.RequestsPerSecond == 0 {
		c.HTTP.RequestsPerSecond = 10
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 5
	}
	if c.Polling.BookInterval == 0 {
		c.Polling.BookInterval = Duration(4 * time.Second)
	}
	if c.Polling.TradesInterval == 0 {
		c.Polling.TradesInterval = Duration(10 * time.Second)
	}
	if c.Polling.OrderStatusInterval == 0 {
		c.Polling.OrderStatusInterval = Duration(7 * time.Second)
	}
	if c.Polling.PositionInterval == 0 {
		c.Polling.PositionInterval = Duration(15 * time.Second)
	}
	if c.Trade.Base == "" {
		c.Trade.Base = "BTC"
	}
	if c.Trade.Quote == "" {
		c.Trade.Quote = "USD"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Bitfinex.OrderDestination == "Bitfinex" {
		if c.Bitfinex.APIKey == "" || c.Bitfinex.APISecret == "" {
			return fmt.Errorf("order destination is Bitfinex but api_key/api_secret are not set")
		}
	}
	return nil
}
