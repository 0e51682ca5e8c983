package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN renders the connection string for the configured driver. For sqlite
// the database field is the file path.
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	Issuer    string        `mapstructure:"issuer"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EmailConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	FromAddress    string `mapstructure:"from_address"`
	FromName       string `mapstructure:"from_name"`
	OperatorsEmail string `mapstructure:"operators_email"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// SettlementConfig tunes matching and the settlement pipeline.
type SettlementConfig struct {
	ToleranceUSD          string        `mapstructure:"tolerance_usd"`
	AnomalyRatio          string        `mapstructure:"anomaly_ratio"`
	IntentTTL             time.Duration `mapstructure:"intent_ttl"`
	ExpireInterval        time.Duration `mapstructure:"expire_interval"`
	ReconcileInterval     time.Duration `mapstructure:"reconcile_interval"`
	StaleSwapAfter        time.Duration `mapstructure:"stale_swap_after"`
	PayoutPollAfter       time.Duration `mapstructure:"payout_poll_after"`
	ReconcileBatchSize    int           `mapstructure:"reconcile_batch_size"`
	DeliveryLockTTL       time.Duration `mapstructure:"delivery_lock_ttl"`
	DeliveryLockWait      time.Duration `mapstructure:"delivery_lock_wait"`
	AlertDeduplicationTTL time.Duration `mapstructure:"alert_dedup_ttl"`
	IntentRateLimit       int           `mapstructure:"intent_rate_limit"`
	IntentRateWindow      time.Duration `mapstructure:"intent_rate_window"`
}

// PricingConfig configures the price oracle and the sell quote fee schedule.
// Source is "coingecko" or "static".
type PricingConfig struct {
	Source       string            `mapstructure:"source"`
	BaseURL      string            `mapstructure:"base_url"`
	APIKey       string            `mapstructure:"api_key"`
	CacheTTL     time.Duration     `mapstructure:"cache_ttl"`
	MaxCacheAge  time.Duration     `mapstructure:"max_cache_age"`
	Timeout      time.Duration     `mapstructure:"timeout"`
	SpreadBps    int64             `mapstructure:"spread_bps"`
	FlatFee      string            `mapstructure:"flat_fee"`
	StaticPrices map[string]string `mapstructure:"static_prices"`
}

// ProviderClientConfig holds the endpoint and OAuth2 client credentials for a provider API.
type ProviderClientConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Scopes       []string      `mapstructure:"scopes"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RatePerSec   float64       `mapstructure:"rate_per_sec"`
	Burst        int           `mapstructure:"burst"`
}

type ProvidersConfig struct {
	Swap   ProviderClientConfig `mapstructure:"swap"`
	Payout ProviderClientConfig `mapstructure:"payout"`
}

// WebhookConfig holds the HMAC secrets per inbound provider.
type WebhookConfig struct {
	CustodySecret     string `mapstructure:"custody_secret"`
	NowPaymentsSecret string `mapstructure:"nowpayments_secret"`
	PayoutSecret      string `mapstructure:"payout_secret"`
	MaxBodyBytes      int64  `mapstructure:"max_body_bytes"`
}
