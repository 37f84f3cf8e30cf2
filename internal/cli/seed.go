package cli

import (
	"errors"
	"fmt"
	"os"

	"commentboard/internal/database"
	"commentboard/internal/seed"

	"github.com/spf13/cobra"
)

type seedFlags struct {
	count   int
	clean   bool
	export  string
	startID uint
	seed    int64
}

func newSeedCmd() *cobra.Command {
	var f seedFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo comments",
		Long: "Insert generated comments into the database, or with --export write them " +
			"to a file in the format read by load-comments.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, f)
		},
	}

	cmd.Flags().IntVar(&f.count, "count", 50, "number of comments to generate")
	cmd.Flags().BoolVar(&f.clean, "clean", false, "delete existing comments first")
	cmd.Flags().StringVar(&f.export, "export", "", "write an import file to this path instead of the database")
	cmd.Flags().UintVar(&f.startID, "start-id", 1, "first id used with --export")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed (0 picks one)")

	return cmd
}

func runSeed(cmd *cobra.Command, f seedFlags) error {
	if f.count <= 0 {
		return errors.New("--count must be positive")
	}
	opts := seed.SeedOptions{ImageRatio: 0.3, Seed: f.seed}

	if f.export != "" {
		if f.startID == 0 {
			return errors.New("--start-id must be positive")
		}
		out, err := os.Create(f.export)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := seed.NewFactory(nil, opts).WriteImportFile(out, f.startID, f.count); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d comments to %s\n", f.count, f.export)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	factory := seed.NewFactory(db, opts)
	if f.clean {
		if err := factory.ClearComments(); err != nil {
			return err
		}
	}

	comments, err := factory.CreateComments(f.count)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d comments.\n", len(comments))
	return nil
}
