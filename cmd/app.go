package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naka-gawa/pr-dashboard/internal/config"
	"github.com/naka-gawa/pr-dashboard/internal/gateway"
	"github.com/naka-gawa/pr-dashboard/internal/logger"
	"github.com/naka-gawa/pr-dashboard/internal/metrics"
	"github.com/naka-gawa/pr-dashboard/internal/usecase"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg       *config.Config
	logger    *zap.SugaredLogger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	dashboard *usecase.Dashboard
}

// newApp loads the configuration and injects the dependencies.
func newApp(cmd *cobra.Command) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, configFile, config.DefaultEnvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	githubGateway, err := gateway.NewGitHubGateway(gateway.Config{
		Token:          cfg.GitHub.Token,
		BaseURL:        cfg.GitHub.BaseURL,
		MaxResults:     cfg.Fetch.MaxResults,
		PageTimeout:    cfg.Fetch.PageTimeout,
		BreakerTimeout: cfg.Fetch.BreakerTimeout,
	}, m, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}

	dashboard := usecase.NewDashboard(githubGateway, log,
		usecase.WithPageSize(cfg.View.PageSize),
		usecase.WithCache(cfg.Fetch.CacheSize, cfg.Fetch.CacheTTL),
		usecase.WithRetry(uint64(cfg.Fetch.MaxRetries), 0),
		usecase.WithFetchTimeout(cfg.Server.RequestTimeout),
		usecase.WithMetrics(m),
	)

	return &app{
		cfg:       cfg,
		logger:    log,
		registry:  registry,
		metrics:   m,
		dashboard: dashboard,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
