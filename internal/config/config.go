package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage drivers.
const (
	StorageDriverDirectory = "directory"
	StorageDriverSQLite    = "sqlite"
	StorageDriverMemory    = "memory"
)

// Analytics sinks.
const (
	AnalyticsSinkLog   = "log"
	AnalyticsSinkRedis = "redis"
	AnalyticsSinkNone  = "none"
)

const (
	envPrefix                = "LEMON"
	defaultStorageDriver     = StorageDriverDirectory
	defaultStoragePath       = "lemon-data"
	defaultLogLevel          = "info"
	defaultAnalyticsSink     = AnalyticsSinkLog
	defaultRedisStream       = "lemon:analytics"
	defaultSessionTTLMinutes = 60
)

// AppConfig captures runtime configuration for the lemon command.
type AppConfig struct {
	StorageDriver          string
	StoragePath            string
	LogLevel               string
	AnalyticsSink          string
	AnalyticsRedisAddress  string
	AnalyticsRedisPassword string
	AnalyticsRedisStream   string
	AuthSigningSecret      string
	SessionTTL             time.Duration
	BcryptCost             int
}

// SessionsEnabled reports whether session tokens can be issued.
func (c AppConfig) SessionsEnabled() bool {
	return strings.TrimSpace(c.AuthSigningSecret) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.path", defaultStoragePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("analytics.sink", defaultAnalyticsSink)
	configViper.SetDefault("analytics.redis_stream", defaultRedisStream)
	configViper.SetDefault("auth.session_ttl_minutes", defaultSessionTTLMinutes)
	configViper.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		StorageDriver:          strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		StoragePath:            configViper.GetString("storage.path"),
		LogLevel:               configViper.GetString("log.level"),
		AnalyticsSink:          strings.ToLower(strings.TrimSpace(configViper.GetString("analytics.sink"))),
		AnalyticsRedisAddress:  configViper.GetString("analytics.redis_address"),
		AnalyticsRedisPassword: configViper.GetString("analytics.redis_password"),
		AnalyticsRedisStream:   configViper.GetString("analytics.redis_stream"),
		AuthSigningSecret:      configViper.GetString("auth.signing_secret"),
		SessionTTL:             time.Duration(configViper.GetInt("auth.session_ttl_minutes")) * time.Minute,
		BcryptCost:             configViper.GetInt("auth.bcrypt_cost"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverDirectory, StorageDriverSQLite:
		if strings.TrimSpace(c.StoragePath) == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.StorageDriver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.StorageDriver)
	}

	switch c.AnalyticsSink {
	case AnalyticsSinkLog, AnalyticsSinkNone:
	case AnalyticsSinkRedis:
		if strings.TrimSpace(c.AnalyticsRedisAddress) == "" {
			return fmt.Errorf("analytics.redis_address is required for the redis sink")
		}
		if strings.TrimSpace(c.AnalyticsRedisStream) == "" {
			return fmt.Errorf("analytics.redis_stream is required for the redis sink")
		}
	default:
		return fmt.Errorf("analytics.sink %q is not supported", c.AnalyticsSink)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl_minutes must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
