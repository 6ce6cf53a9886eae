// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// v collects configuration for every command. Flags are bound to it in init,
// so they take precedence over the environment and the config file.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "pr-dashboard",
	Short: "A dashboard of a GitHub user's public pull requests.",
	Long: `pr-dashboard lists every public pull request authored by a GitHub user,
grouped into open, merged and closed, with per-organization counts.
It can serve an HTML dashboard and JSON API, or print a page or summary as JSON.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("user", "u", "", "GitHub user whose pull requests are shown (default $GITHUB_USERNAME)")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")

	_ = v.BindPFlag("github.username", rootCmd.PersistentFlags().Lookup("user"))
}
