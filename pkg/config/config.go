package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"HyperTrack/pkg/apperror"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Wallet is one tracked address with its display label.
type Wallet struct {
	Label   string `yaml:"label"`
	Address string `yaml:"address"`
}

type Config struct {
	App struct {
		Title           string `yaml:"title"`
		RefreshInterval int    `yaml:"refresh_interval"` // seconds
		Environment     string `yaml:"environment" default:"production"`
	} `yaml:"app"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	APIs struct {
		RPCEndpoint  string `yaml:"rpc_endpoint"`
		HyperCoreAPI string `yaml:"hypercore_api"`
		PriceAPI     string `yaml:"price_api"`
		Timeout      int    `yaml:"timeout" default:"10"`     // seconds per request
		RateLimit    int    `yaml:"rate_limit" default:"8"`   // info API requests/sec
		BurstLimit   int    `yaml:"burst_limit" default:"4"`
	} `yaml:"apis"`
	Prices struct {
		CacheTTL int               `yaml:"cache_ttl" default:"300"` // seconds
		Feeds    map[string]string `yaml:"feeds"`                   // symbol -> Pyth feed id
		Static   map[string]string `yaml:"static"`                  // symbol -> fixed price
	} `yaml:"prices"`
	Wallets []Wallet `yaml:"wallets"`
	Cache   struct {
		Backend string `yaml:"backend" default:"memory"`
		Redis   struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	History struct {
		Backend    string `yaml:"backend" default:"none"`
		ClickHouse struct {
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"hypertrack"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			UseHTTP      bool          `yaml:"use_http"`
			AsyncInsert  bool          `yaml:"async_insert"`
			WaitForAsync bool          `yaml:"wait_for_async_insert"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"clickhouse"`
		Kafka struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"wallet-snapshots"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"kafka"`
	} `yaml:"history"`
}

// RefreshInterval returns the poll interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.App.RefreshInterval) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.APIs.Timeout) * time.Second
}

// PriceCacheTTL returns the price cache lifetime as a duration.
func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.Prices.CacheTTL) * time.Second
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.ConfigErr(fmt.Errorf("read config: %w", err))
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, apperror.ConfigErr(fmt.Errorf("parse config: %w", err))
	}

	if err := defaults.Set(&c); err != nil {
		return nil, apperror.ConfigErr(fmt.Errorf("apply defaults: %w", err))
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, apperror.ConfigErr(err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("RPC_ENDPOINT"); v != "" {
		c.APIs.RPCEndpoint = v
	}
	if v := os.Getenv("HYPERCORE_API"); v != "" {
		c.APIs.HyperCoreAPI = v
	}
	if v := os.Getenv("PRICE_API"); v != "" {
		c.APIs.PriceAPI = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.History.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.History.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.History.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}

	if err := c.Validate(); err != nil {
		return nil, apperror.ConfigErr(err)
	}

	return c, nil
}

// Validate checks if the configuration is valid. Endpoints and wallets are
// checked strictly: a silently wrong endpoint produces wrong financial data.
func (c *Config) Validate() error {
	if c.App.Title == "" {
		return fmt.Errorf("app.title is required")
	}
	if c.App.RefreshInterval <= 0 {
		return fmt.Errorf("app.refresh_interval must be a positive number of seconds, got %d", c.App.RefreshInterval)
	}
	if err := validateURL("apis.rpc_endpoint", c.APIs.RPCEndpoint); err != nil {
		return err
	}
	if err := validateURL("apis.hypercore_api", c.APIs.HyperCoreAPI); err != nil {
		return err
	}
	if err := validateURL("apis.price_api", c.APIs.PriceAPI); err != nil {
		return err
	}
	if len(c.Wallets) == 0 {
		return fmt.Errorf("wallets cannot be empty")
	}
	seen := make(map[string]string, len(c.Wallets))
	for i, w := range c.Wallets {
		if w.Label == "" {
			return fmt.Errorf("wallets[%d].label is required", i)
		}
		if w.Address == "" {
			return fmt.Errorf("wallets[%d].address is required", i)
		}
		addr := strings.ToLower(w.Address)
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("wallets[%d].address duplicates %q", i, prev)
		}
		seen[addr] = w.Label
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	switch c.History.Backend {
	case "none", "clickhouse", "kafka":
	default:
		return fmt.Errorf("history.backend must be 'none', 'clickhouse' or 'kafka', got '%s'", c.History.Backend)
	}
	if c.History.Backend == "kafka" && len(c.History.Kafka.Brokers) == 0 {
		return fmt.Errorf("history.kafka.brokers cannot be empty when history.backend is 'kafka'")
	}
	return nil
}

func validateURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got scheme '%s'", key, u.Scheme)
	}
	return nil
}
