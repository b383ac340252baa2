package admin

import (
	"fmt"

	"github.com/cloo-solutions/notewise/internal/config"
	"github.com/cloo-solutions/notewise/internal/database"
	"github.com/cloo-solutions/notewise/internal/logging"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.PersistentFlags().String("source", database.DefaultMigrationsPath, "Migration source URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, source, err := migrateSetup(cmd)
			if err != nil {
				return err
			}
			return database.Migrate(cfg.DatabaseURL, source)
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, source, err := migrateSetup(cmd)
			if err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetInt("steps")
			if err := database.MigrateDown(cfg.DatabaseURL, source, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func migrateSetup(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Debug)

	if cfg.UseMemoryStore() {
		return nil, "", fmt.Errorf("migrations require NOTEWISE_VECTOR_BACKEND=postgres")
	}

	source, _ := cmd.Flags().GetString("source")
	return cfg, source, nil
}
