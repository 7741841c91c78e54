// Package main implements shelfctl, the operator CLI for a Shelfwise data
// directory: schema migrations and catalog import/export.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/logger"
)

var (
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "shelfctl",
	Short:         "Operate a Shelfwise data directory",
	Long:          `shelfctl runs database migrations and imports or exports the book catalog of a Shelfwise server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newLogger builds a stderr logger so command output on stdout stays clean.
func newLogger() *logger.Logger {
	level := logLevel
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Writer: os.Stderr,
		Format: "pretty",
		Level:  logger.ParseLevel(level),
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCatalogCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
