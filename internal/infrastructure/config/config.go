package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/offramp/internal/shared/config"
)

// Config represents the application configuration
type Config struct {
	Server     sharedConfig.ServerConfig     `mapstructure:"server"`
	Database   sharedConfig.DatabaseConfig   `mapstructure:"database"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Auth       sharedConfig.AuthConfig       `mapstructure:"auth"`
	Redis      sharedConfig.RedisConfig      `mapstructure:"redis"`
	Email      sharedConfig.EmailConfig      `mapstructure:"email"`
	NATS       sharedConfig.NATSConfig       `mapstructure:"nats"`
	Settlement sharedConfig.SettlementConfig `mapstructure:"settlement"`
	Pricing    sharedConfig.PricingConfig    `mapstructure:"pricing"`
	Providers  sharedConfig.ProvidersConfig  `mapstructure:"providers"`
	Webhook    sharedConfig.WebhookConfig    `mapstructure:"webhook"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml when present and overlays OFFRAMP_* environment
// variables, e.g. OFFRAMP_DATABASE_HOST for database.host.
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("OFFRAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration, or nil before Load.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Validate checks settings that would otherwise fail at the first deposit.
// Provider calls run inside the webhook request, so their timeouts must end
// before the server gives up on the response.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	for name, timeout := range map[string]time.Duration{
		"providers.swap.timeout":   c.Providers.Swap.Timeout,
		"providers.payout.timeout": c.Providers.Payout.Timeout,
		"pricing.timeout":          c.Pricing.Timeout,
	} {
		if timeout <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
		if c.Server.WriteTimeout > 0 && timeout >= c.Server.WriteTimeout {
			return fmt.Errorf("%s (%s) must be shorter than server.write_timeout (%s)", name, timeout, c.Server.WriteTimeout)
		}
	}

	for name, raw := range map[string]string{
		"settlement.tolerance_usd": c.Settlement.ToleranceUSD,
		"settlement.anomaly_ratio": c.Settlement.AnomalyRatio,
		"pricing.flat_fee":         c.Pricing.FlatFee,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid decimal %q", name, raw)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Pricing.SpreadBps < 0 || c.Pricing.SpreadBps >= 10000 {
		return fmt.Errorf("pricing.spread_bps must be in [0, 10000)")
	}
	switch c.Pricing.Source {
	case "coingecko", "static":
	default:
		return fmt.Errorf("unsupported pricing source: %q", c.Pricing.Source)
	}
	if c.Settlement.IntentTTL <= 0 {
		return fmt.Errorf("settlement.intent_ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.auto_migrate", false)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "offramp_dev")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "offramp")
	v.SetDefault("auth.jwt.access_ttl", "1h")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 1025)
	v.SetDefault("email.smtp_user", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("email.from_address", "noreply@offramp.local")
	v.SetDefault("email.from_name", "Offramp")
	v.SetDefault("email.operators_email", "")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "offramp.settlement.outcome")

	v.SetDefault("settlement.tolerance_usd", "5")
	v.SetDefault("settlement.anomaly_ratio", "0.2")
	v.SetDefault("settlement.intent_ttl", "30m")
	v.SetDefault("settlement.expire_interval", "1m")
	v.SetDefault("settlement.reconcile_interval", "2m")
	v.SetDefault("settlement.stale_swap_after", "5m")
	v.SetDefault("settlement.payout_poll_after", "10m")
	v.SetDefault("settlement.reconcile_batch_size", 50)
	v.SetDefault("settlement.delivery_lock_ttl", "30s")
	v.SetDefault("settlement.delivery_lock_wait", "5s")
	v.SetDefault("settlement.alert_dedup_ttl", "1h")
	v.SetDefault("settlement.intent_rate_limit", 20)
	v.SetDefault("settlement.intent_rate_window", "1m")

	v.SetDefault("pricing.source", "coingecko")
	v.SetDefault("pricing.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("pricing.api_key", "")
	v.SetDefault("pricing.cache_ttl", "1m")
	v.SetDefault("pricing.max_cache_age", "10m")
	v.SetDefault("pricing.timeout", "5s")
	v.SetDefault("pricing.spread_bps", 100)
	v.SetDefault("pricing.flat_fee", "0")

	for _, p := range []string{"swap", "payout"} {
		v.SetDefault("providers."+p+".base_url", "")
		v.SetDefault("providers."+p+".token_url", "")
		v.SetDefault("providers."+p+".client_id", "")
		v.SetDefault("providers."+p+".client_secret", "")
		v.SetDefault("providers."+p+".timeout", "10s")
		v.SetDefault("providers."+p+".rate_per_sec", 5)
		v.SetDefault("providers."+p+".burst", 10)
	}

	v.SetDefault("webhook.custody_secret", "")
	v.SetDefault("webhook.nowpayments_secret", "")
	v.SetDefault("webhook.payout_secret", "")
	v.SetDefault("webhook.max_body_bytes", 1<<20)
}
