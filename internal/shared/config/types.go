package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	BaseURL  string `mapstructure:"base_url"`
	Timezone string `mapstructure:"timezone"`

	// AllowedOrigins lists the origins the admin API answers CORS requests for.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// WebhookRateLimit caps webhook requests per source IP per minute; 0 disables it.
	WebhookRateLimit int `mapstructure:"webhook_rate_limit"`
	// RunScheduler starts the charge and sweep jobs inside the server process.
	RunScheduler bool `mapstructure:"run_scheduler"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// VaultConfig holds the process-wide credential encryption key (64 hex chars).
type VaultConfig struct {
	Key string `mapstructure:"key"`
}

type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	Factor         float64       `mapstructure:"factor"`
	JitterFraction float64       `mapstructure:"jitter_fraction"`
}

type BillingConfig struct {
	FailureThreshold   int           `mapstructure:"failure_threshold"`
	MaxRetryCycles     int           `mapstructure:"max_retry_cycles"`
	ConnectorCacheTTL  time.Duration `mapstructure:"connector_cache_ttl"`
	ConnectorCacheSize int           `mapstructure:"connector_cache_size"`
	ChargeConcurrency  int           `mapstructure:"charge_concurrency"`
	ChargeInterval     time.Duration `mapstructure:"charge_interval"`
	ChargeBatchSize    int           `mapstructure:"charge_batch_size"`
	ChargeLockTTL      time.Duration `mapstructure:"charge_lock_ttl"`
	ProcessingTimeout  time.Duration `mapstructure:"processing_timeout"`
	AbandonedAfter     time.Duration `mapstructure:"abandoned_after"`
	ReattemptInterval  time.Duration `mapstructure:"reattempt_interval"`
	Retry              RetryConfig   `mapstructure:"retry"`
}

type GatewaysConfig struct {
	// Environment selects which connectors this deployment resolves: sandbox or production.
	Environment        string        `mapstructure:"environment"`
	MercadoPagoBaseURL string        `mapstructure:"mercadopago_base_url"`
	StripeBaseURL      string        `mapstructure:"stripe_base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	TokenExpMinutes int    `mapstructure:"token_exp_minutes"`
}

// NotificationConfig configures outbound alert email. AlertCooldown suppresses
// repeats of the same alert; 0 sends every one.
type NotificationConfig struct {
	SMTPHost      string        `mapstructure:"smtp_host"`
	SMTPPort      int           `mapstructure:"smtp_port"`
	SMTPUser      string        `mapstructure:"smtp_user"`
	SMTPPassword  string        `mapstructure:"smtp_password"`
	FromAddress   string        `mapstructure:"from_address"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}
