package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-dashboard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the dashboard and its JSON API over HTTP",
	Long: `Serves the HTML dashboard on / and the JSON API on /api/pulls, /api/organizations
and /api/profile. The view is selected with the tab, search, org and page query parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		srv, err := server.New(a.dashboard, a.logger, server.Options{
			Username:       a.cfg.GitHub.Username,
			RequestTimeout: a.cfg.Server.RequestTimeout,
			Metrics:        a.metrics,
			Gatherer:       a.registry,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return srv.Run(cmd.Context(), a.cfg.ServerAddr(), a.cfg.Server.ShutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Address to listen on (default 0.0.0.0)")
	serveCmd.Flags().Int("port", 0, "Port to listen on (default 8080)")

	_ = v.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
