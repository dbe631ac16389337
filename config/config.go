package config

import (
	"log/slog"
	"math/big"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/defiguard/flowbreaker/internal/asset"
	"github.com/defiguard/flowbreaker/internal/policy"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	SettlementMemory = "memory"
	SettlementHTTP   = "http"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type BreakerConfig struct {
	CooldownPeriod string `mapstructure:"cooldown_period"`
	TriggerPolicy  string `mapstructure:"trigger_policy"`
}

type AccessConfig struct {
	Admin              string   `mapstructure:"admin"`
	ProtectedContracts []string `mapstructure:"protected_contracts"`
}

type AssetConfig struct {
	Asset            string `mapstructure:"asset"`
	Threshold        string `mapstructure:"threshold"`
	MinAmountToLimit string `mapstructure:"min_amount_to_limit"`
}

type SettlementConfig struct {
	Backend        string `mapstructure:"backend"`
	URL            string `mapstructure:"url"`
	HealthInterval string `mapstructure:"health_interval"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Access     AccessConfig     `mapstructure:"access"`
	Assets     []AssetConfig    `mapstructure:"assets"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Events     EventsConfig     `mapstructure:"events"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("breaker.cooldown_period", "4h")
	viper.SetDefault("breaker.trigger_policy", policy.TypePercentage)
	viper.SetDefault("settlement.backend", SettlementMemory)
	viper.SetDefault("settlement.health_interval", "10s")
	viper.SetDefault("events.buffer_size", 1024)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.CooldownPeriod,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.TriggerPolicy,
						validation.Required,
						validation.In(policy.TypePercentage, policy.TypeNominal),
					),
				)
			}),
		),
		validation.Field(&c.Access,
			validation.Required,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AccessConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AccessConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Admin,
						validation.Required,
					),
				)
			}),
		),
		validation.Field(&c.Assets,
			validation.Each(validation.By(validateAssetConfig)),
		),
		validation.Field(&c.Settlement,
			validation.Required,
			validation.By(validateSettlementConfig),
		),
		validation.Field(&c.Events,
			validation.Required,
			validation.By(func(value interface{}) error {
				ec, ok := value.(EventsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an EventsConfig")
				}
				return validation.ValidateStruct(&ec,
					validation.Field(&ec.BufferSize,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
	)
}

// CooldownDuration returns the parsed cooldown period. Call after Validate.
func (c *Config) CooldownDuration() time.Duration {
	d, _ := time.ParseDuration(c.Breaker.CooldownPeriod)
	return d
}

// HealthIntervalDuration returns the parsed settlement health interval.
// Call after Validate.
func (c *Config) HealthIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Settlement.HealthInterval)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateAssetConfig(value interface{}) error {
	ac, ok := value.(AssetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an AssetConfig")
	}

	if _, err := asset.Parse(ac.Asset); err != nil {
		return validation.NewError("validation_invalid_asset", "asset must be 'native' or 'token:<address>'")
	}

	threshold, ok := new(big.Int).SetString(ac.Threshold, 10)
	if !ok || threshold.Sign() <= 0 {
		return validation.NewError("validation_invalid_threshold", "threshold must be a positive integer")
	}

	minAmount, ok := new(big.Int).SetString(ac.MinAmountToLimit, 10)
	if !ok || minAmount.Sign() < 0 {
		return validation.NewError("validation_invalid_min_amount", "min_amount_to_limit must be a non-negative integer")
	}

	return nil
}

func validateSettlementConfig(value interface{}) error {
	sc, ok := value.(SettlementConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a SettlementConfig")
	}

	if err := validation.ValidateStruct(&sc,
		validation.Field(&sc.Backend,
			validation.Required,
			validation.In(SettlementMemory, SettlementHTTP),
		),
		validation.Field(&sc.HealthInterval,
			validation.Required,
			validation.By(validateDuration),
		),
	); err != nil {
		return err
	}

	if sc.Backend == SettlementHTTP {
		parsedURL, err := url.Parse(sc.URL)
		if err != nil || sc.URL == "" {
			return validation.NewError("validation_invalid_url", "settlement URL must be a valid URL")
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return validation.NewError("validation_invalid_scheme", "settlement URL must use http or https")
		}
		if parsedURL.Host == "" {
			return validation.NewError("validation_missing_host", "settlement URL must have a host")
		}
	}

	return nil
}
