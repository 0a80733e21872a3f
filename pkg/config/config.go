package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		BarsTopic      string   `yaml:"bars_topic"`
		ForecastsTopic string   `yaml:"forecasts_topic"`
		LogsTopic      string   `yaml:"logs_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Warmup struct {
		Enabled  bool          `yaml:"enabled"`
		Symbols  []string      `yaml:"symbols"`
		Interval time.Duration `yaml:"interval"`
		Workers  int           `yaml:"workers"`
		RetryMax int           `yaml:"retry_max"`
	} `yaml:"warmup"`
	Forecast ForecastConfig `yaml:"forecast"`
}

// ForecastConfig holds the tunables of the prediction engine.
type ForecastConfig struct {
	NLags          int           `yaml:"n_lags"`
	WindowSize     int           `yaml:"window_size"`
	HorizonDays    int           `yaml:"horizon_days"`
	MaxHorizonDays int           `yaml:"max_horizon_days"`
	MinHistory     int           `yaml:"min_history"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	Models         []string      `yaml:"models"`
	Seed           int64         `yaml:"seed"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("FORECAST_MODELS"); v != "" {
		c.Forecast.Models = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Warmup.Interval == 0 {
		c.Warmup.Interval = 10 * time.Minute
	}
	if c.Warmup.Workers == 0 {
		c.Warmup.Workers = 2
	}
	f := &c.Forecast
	if f.NLags == 0 {
		f.NLags = 7
	}
	if f.WindowSize == 0 {
		f.WindowSize = 7
	}
	if f.HorizonDays == 0 {
		f.HorizonDays = 7
	}
	if f.MaxHorizonDays == 0 {
		f.MaxHorizonDays = 90
	}
	if f.MinHistory == 0 {
		f.MinHistory = 30
	}
	if f.CacheTTL == 0 {
		f.CacheTTL = 300 * time.Second
	}
	if len(f.Models) == 0 {
		f.Models = []string{"gradient", "forest", "seasonal"}
	}
	if f.Seed == 0 {
		f.Seed = 42
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Warmup.Enabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("warmup requires redis to be enabled")
		}
		if len(c.Warmup.Symbols) == 0 {
			return fmt.Errorf("warmup.symbols cannot be empty when warmup is enabled")
		}
	}
	f := c.Forecast
	if f.NLags < 1 || f.WindowSize < 2 {
		return fmt.Errorf("forecast: n_lags must be >= 1 and window_size >= 2")
	}
	if f.HorizonDays < 1 || f.HorizonDays > f.MaxHorizonDays {
		return fmt.Errorf("forecast: horizon_days must be in [1, %d]", f.MaxHorizonDays)
	}
	if f.CacheTTL < 0 {
		return fmt.Errorf("forecast: cache_ttl must not be negative")
	}
	return nil
}
