package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	Pools             []string
	PostgresDSN       string
	BackfillWindow    uint64
	ChunkWidth        uint64
	HeadOffset        uint64
	MaxConcurrent     int
	MaxRetries        int
	RetryBackoff      time.Duration
	MaxBackoff        time.Duration
	RateLimitCooldown time.Duration
	CallTimeout       time.Duration
	RequestsPerSecond float64
	Interval          time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backfill-window", uint64(200_000))
	v.SetDefault("chunk-width", uint64(5_000))
	v.SetDefault("head-offset", uint64(0))
	v.SetDefault("max-concurrent", 4)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", time.Second)
	v.SetDefault("max-backoff", 30*time.Second)
	v.SetDefault("rate-limit-cooldown", 30*time.Second)
	v.SetDefault("call-timeout", 30*time.Second)
	v.SetDefault("rps", float64(0))
	v.SetDefault("interval", time.Duration(0))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Pools:             getStringSlice(v, "pool"),
		PostgresDSN:       v.GetString("pg-dsn"),
		BackfillWindow:    v.GetUint64("backfill-window"),
		ChunkWidth:        v.GetUint64("chunk-width"),
		HeadOffset:        v.GetUint64("head-offset"),
		MaxConcurrent:     v.GetInt("max-concurrent"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MaxBackoff:        v.GetDuration("max-backoff"),
		RateLimitCooldown: v.GetDuration("rate-limit-cooldown"),
		CallTimeout:       v.GetDuration("call-timeout"),
		RequestsPerSecond: v.GetFloat64("rps"),
		Interval:          v.GetDuration("interval"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate rejects configurations an indexing run cannot start from.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("pool list is required")
	}
	if c.ChunkWidth == 0 {
		return fmt.Errorf("chunk width must be greater than zero")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
