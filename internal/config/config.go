package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the CLI runtime configuration loaded from .env files and environment variables.
type Config struct {
	AppName            string        `mapstructure:"app_name"`
	Env                string        `mapstructure:"app_env"`
	LogLevel           string        `mapstructure:"log_level"`
	IronConfigFile     string        `mapstructure:"iron_config_file"`
	Generation         string        `mapstructure:"iron_generation"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	SinksFile          string        `mapstructure:"sinks_file"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`

	Forward Forward `mapstructure:",squash"`
}

// Forward configures the queue forwarder.
type Forward struct {
	BatchSize                 int           `mapstructure:"forward_batch_size"`
	WaitSeconds               int           `mapstructure:"forward_wait_seconds"`
	ReservationTimeoutSeconds int           `mapstructure:"forward_reservation_timeout_seconds"`
	ReleaseDelaySeconds       int           `mapstructure:"forward_release_delay_seconds"`
	IntervalSeconds           int64         `mapstructure:"forward_interval_seconds"`
	Interval                  time.Duration `mapstructure:"-"`

	LedgerType       string        `mapstructure:"forward_ledger"`
	LedgerPath       string        `mapstructure:"forward_ledger_path"`
	LedgerTTLSeconds int64         `mapstructure:"forward_ledger_ttl_seconds"`
	LedgerTTL        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and the optional dotenv file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "ironmq-go")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("iron_config_file", "")
	v.SetDefault("iron_generation", "3")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("sinks_file", "./configs/sinks.yaml")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("forward_batch_size", 10)
	v.SetDefault("forward_wait_seconds", 5)
	v.SetDefault("forward_reservation_timeout_seconds", 60)
	v.SetDefault("forward_release_delay_seconds", 0)
	v.SetDefault("forward_interval_seconds", 1)
	v.SetDefault("forward_ledger", "none")
	v.SetDefault("forward_ledger_path", "./data/forward.db")
	v.SetDefault("forward_ledger_ttl_seconds", int64((24*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	f := &c.Forward
	if f.BatchSize <= 0 || f.BatchSize > 100 {
		return fmt.Errorf("invalid forward_batch_size (must be between 1 and 100)")
	}
	if f.WaitSeconds < 0 || f.WaitSeconds > 30 {
		return fmt.Errorf("invalid forward_wait_seconds (must be between 0 and 30)")
	}
	if f.ReservationTimeoutSeconds < 30 || f.ReservationTimeoutSeconds > 86400 {
		return fmt.Errorf("invalid forward_reservation_timeout_seconds (must be between 30 and 86400)")
	}
	if f.ReleaseDelaySeconds < 0 {
		return fmt.Errorf("invalid forward_release_delay_seconds (must not be negative)")
	}
	if f.IntervalSeconds <= 0 {
		return fmt.Errorf("invalid forward_interval_seconds (must be positive seconds)")
	}
	f.Interval = time.Duration(f.IntervalSeconds) * time.Second

	if f.LedgerTTLSeconds <= 0 {
		return fmt.Errorf("invalid forward_ledger_ttl_seconds (must be positive seconds)")
	}
	f.LedgerTTL = time.Duration(f.LedgerTTLSeconds) * time.Second
	return nil
}
