package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	GitHub  GitHubConfig  `mapstructure:"github"`
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	View    ViewConfig    `mapstructure:"view"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate ensures required fields are present and limits are sane.
func (c Config) Validate() error {
	if c.GitHub.Token == "" {
		return errors.New("github.token is required (set GITHUB_TOKEN)")
	}
	if c.GitHub.Username == "" {
		return errors.New("github.username is required (set GITHUB_USERNAME or --user)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Fetch.MaxResults <= 0 || c.Fetch.MaxResults > 1000 {
		return fmt.Errorf("fetch.max_results must be between 1 and 1000, got %d", c.Fetch.MaxResults)
	}
	if c.Fetch.PageTimeout <= 0 {
		return errors.New("fetch.page_timeout must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must not be negative")
	}
	if c.View.PageSize <= 0 {
		return fmt.Errorf("view.page_size must be positive, got %d", c.View.PageSize)
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GitHubConfig contains the upstream account and credentials.
type GitHubConfig struct {
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	BaseURL  string `mapstructure:"base_url"`
}

// ServerConfig contains HTTP server options.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// FetchConfig controls how pull requests are fetched and memoized.
type FetchConfig struct {
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
	MaxResults     int           `mapstructure:"max_results"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	CacheSize      int           `mapstructure:"cache_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

// ViewConfig contains rendering preferences.
type ViewConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
