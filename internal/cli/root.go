// Package cli defines the cobra command tree for the manage binary.
package cli

import (
	"context"
	"fmt"
	"os"

	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/middleware"
	"commentboard/internal/observability"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// loadConfig is swapped out in tests.
var loadConfig = config.LoadConfig

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Management commands for the comment board",
		Long:          "Management commands for the comment board: import comments from JSON, migrate the schema and seed demo data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// stdout carries command results only.
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			middleware.SetLogOutput(cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newLoadCommentsCmd(),
		newMigrateCmd(),
		newSeedCmd(),
	)

	return root
}

// initTracing starts tracing for a command run and returns its shutdown func.
func initTracing(cfg *config.Config) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    "commentboard-manage",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
}

// closeDB closes the database, logging any error to stderr.
func closeDB(db *gorm.DB) {
	if err := database.Close(db); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
