// Package cmd provides the pgrag CLI commands.
//
// Commands:
//   - serve: HTTP API server
//   - add: store a document with its embedding
//   - search: similarity search over stored documents
//   - ask: retrieval-augmented question answering
//   - chat: chat completion pass-through
//   - version: build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgrag/pgrag/internal/log"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:          "pgrag",
	Short:        "pgrag - retrieval-augmented generation over PostgreSQL and pgvector",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for command output. DEBUG env var also enables debug level.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugLogging || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{Level: level})
}
