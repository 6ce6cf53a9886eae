// Package server exposes the dashboard over HTTP: an HTML page and a JSON API
// that both take the view state from the URL query.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
	"github.com/naka-gawa/pr-dashboard/internal/metrics"
	"github.com/naka-gawa/pr-dashboard/internal/usecase"
	"github.com/naka-gawa/pr-dashboard/internal/viewstate"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultRequestTimeout = 2 * time.Minute

// Dashboard is the use case the server renders.
type Dashboard interface {
	View(ctx context.Context, username string, state viewstate.State) (*usecase.View, error)
	Organizations(ctx context.Context, username string) ([]domain.OrganizationSummary, error)
	Profile(ctx context.Context, username string) (*domain.Profile, error)
}

// Options configures a Server.
type Options struct {
	// Username is the GitHub account whose pull requests are shown.
	Username       string
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server serves the dashboard.
type Server struct {
	dashboard      Dashboard
	username       string
	logger         *zap.SugaredLogger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
	router         *gin.Engine
}

// New builds the router. gin's mode is left to the caller.
func New(dashboard Dashboard, logger *zap.SugaredLogger, opts Options) (*Server, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	s := &Server{
		dashboard:      dashboard,
		username:       opts.Username,
		logger:         logger,
		metrics:        opts.Metrics,
		requestTimeout: opts.RequestTimeout,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger, opts.Metrics))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.handleIndex)
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	{
		api.GET("/pulls", s.handlePulls)
		api.GET("/organizations", s.handleOrganizations)
		api.GET("/profile", s.handleProfile)
	}

	s.router = router
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("starting server", "addr", addr, "username", s.username)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("server shutdown timeout", "timeout", shutdownTimeout, "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.logger.Infow("server stopped")
	return nil
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.requestTimeout)
}
