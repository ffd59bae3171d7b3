// Package cli provides the command-line interface for the indexer.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ixberis/doxai-indexer/internal/config"
	"github.com/ixberis/doxai-indexer/internal/db"
	"github.com/ixberis/doxai-indexer/internal/ledger"
	"github.com/ixberis/doxai-indexer/internal/progress"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "doxai",
	Short: "Document indexing pipeline for RAG retrieval",
	Long: `Doxai indexes documents for retrieval-augmented generation: it converts
source files to plain text, optionally runs OCR on scanned documents,
splits the text into chunks, embeds each chunk and activates the result
for search.

Every submission creates a durable job with an append-only event
timeline, and credits are reserved up front and settled when the job
finishes.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
		}

		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// ledgerService creates the credit ledger backed by the shared db client.
func ledgerService() *ledger.Service {
	return ledger.NewServiceWithTTL(dbClient, cfg.ReservationTTL)
}

// progressService creates the progress reader backed by the shared db client.
func progressService() *progress.Service {
	return progress.NewService(dbClient)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
