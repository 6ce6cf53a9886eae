// Package config loads application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. PR_DASHBOARD_SERVER_PORT.
	EnvPrefix = "PR_DASHBOARD"
	// DefaultEnvFile is read when present; variables already set in the environment win.
	DefaultEnvFile = ".env"
)

// NewConfig loads configuration from the environment, the optional .env file and
// the optional config file, using viper with typed defaults and validation.
func NewConfig(configFile string) (*Config, error) {
	return Load(viper.New(), configFile, DefaultEnvFile)
}

// Load reads configuration into v, which may already carry bound command-line flags.
// Precedence, highest first: flags, environment, config file, defaults.
func Load(v *viper.Viper, configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if envMap, err := godotenv.Read(envFile); err == nil {
			for k, val := range envMap {
				if _, exists := os.LookupEnv(k); !exists {
					_ = os.Setenv(k, val)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("github.token", "")
	v.SetDefault("github.username", "")
	v.SetDefault("github.base_url", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("fetch.page_timeout", 15*time.Second)
	v.SetDefault("fetch.max_results", 1000)
	v.SetDefault("fetch.cache_ttl", 5*time.Minute)
	v.SetDefault("fetch.cache_size", 32)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.breaker_timeout", 60*time.Second)

	v.SetDefault("view.page_size", 15)
}

// bindEnvs makes every key visible to Unmarshal. The GitHub settings are also
// read from the bare names commonly exported in CI and shells.
func bindEnvs(v *viper.Viper) error {
	aliases := map[string][]string{
		"github.token":    {EnvPrefix + "_GITHUB_TOKEN", "GITHUB_TOKEN"},
		"github.username": {EnvPrefix + "_GITHUB_USERNAME", "GITHUB_USERNAME"},
		"github.base_url": {EnvPrefix + "_GITHUB_BASE_URL", "GITHUB_BASE_URL"},
	}
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"server.request_timeout",
		"fetch.page_timeout",
		"fetch.max_results",
		"fetch.cache_ttl",
		"fetch.cache_size",
		"fetch.max_retries",
		"fetch.breaker_timeout",
		"view.page_size",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	return nil
}
