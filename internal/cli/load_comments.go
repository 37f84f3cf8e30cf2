package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"commentboard/internal/cache"
	"commentboard/internal/database"
	"commentboard/internal/importer"
	"commentboard/internal/middleware"

	"github.com/spf13/cobra"
)

const loadedMessage = "Data loaded successfully!"

func newLoadCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-comments",
		Short: "Import comments from the comments file",
		Long: "Read COMMENTS_FILE (default ../comments.json) and create every comment whose id is not stored yet. " +
			"Existing comments are never modified. Set IMPORT_ATOMIC=true to import all-or-nothing.",
		Args: cobra.NoArgs,
		RunE: runLoadComments,
	}
}

func runLoadComments(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTracing, err := initTracing(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = shutdownTracing(ctx) }()

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if cache.InitRedis(cfg.RedisURL) != nil {
		defer cache.Close()
	}

	res, err := importer.New(db, importer.Options{Atomic: cfg.ImportAtomic}).LoadFile(ctx, cfg.CommentsFile)
	if err != nil {
		return err
	}

	middleware.Logger.Debug("import finished", "run_id", res.RunID, "created", res.Created, "skipped", res.Skipped)
	fmt.Fprintln(cmd.OutOrStdout(), loadedMessage)
	return nil
}
