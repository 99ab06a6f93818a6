package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/paybridge/internal/shared/config"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Vault        sharedConfig.VaultConfig        `mapstructure:"vault"`
	Billing      sharedConfig.BillingConfig      `mapstructure:"billing"`
	Gateways     sharedConfig.GatewaysConfig     `mapstructure:"gateways"`
	Auth         sharedConfig.AuthConfig         `mapstructure:"auth"`
	Notification sharedConfig.NotificationConfig `mapstructure:"notification"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
// configPath overrides the default search locations when non-empty.
func Load(env, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("PAYBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Running purely from env vars is supported; only a broken file is fatal
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.webhook_rate_limit", 600)
	v.SetDefault("server.run_scheduler", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "paybridge_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// No default: an absent key must stop the process at boot
	v.SetDefault("vault.key", "")

	v.SetDefault("billing.failure_threshold", 2)
	v.SetDefault("billing.max_retry_cycles", 3)
	v.SetDefault("billing.connector_cache_ttl", 5*time.Minute)
	v.SetDefault("billing.connector_cache_size", 1024)
	v.SetDefault("billing.charge_concurrency", 8)
	v.SetDefault("billing.charge_interval", 15*time.Minute)
	v.SetDefault("billing.charge_batch_size", 200)
	v.SetDefault("billing.charge_lock_ttl", 2*time.Minute)
	v.SetDefault("billing.processing_timeout", 60*time.Second)
	v.SetDefault("billing.abandoned_after", 15*time.Minute)
	v.SetDefault("billing.reattempt_interval", 24*time.Hour)
	v.SetDefault("billing.retry.max_retries", 4)
	v.SetDefault("billing.retry.base_delay", time.Second)
	v.SetDefault("billing.retry.max_delay", 8*time.Second)
	v.SetDefault("billing.retry.factor", 2.0)
	v.SetDefault("billing.retry.jitter_fraction", 0.2)

	v.SetDefault("gateways.environment", "production")
	v.SetDefault("gateways.mercadopago_base_url", "https://api.mercadopago.com")
	v.SetDefault("gateways.stripe_base_url", "https://api.stripe.com")
	v.SetDefault("gateways.request_timeout", 10*time.Second)

	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.token_exp_minutes", 60)

	v.SetDefault("notification.smtp_host", "")
	v.SetDefault("notification.smtp_port", 587)
	v.SetDefault("notification.from_address", "billing@paybridge.local")
	v.SetDefault("notification.admin_email", "")
	v.SetDefault("notification.alert_cooldown", 30*time.Minute)
}
