package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres migrations",
	Long: `Apply the SQL migrations in DB_MIGRATION_FOLDER_PATH. Without --version the
database is migrated to the latest version. --force marks a dirty database as
clean at the given version before migrating.`,
	RunE: runMigrate,
}

var (
	migrateVersion int
	migrateForce   int
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&migrateVersion, "version", 0, "Target migration version (0 for latest)")
	migrateCmd.Flags().IntVar(&migrateForce, "force", 0, "Force the schema version before migrating")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return withExitCode(errors.New("migrate needs STORE_DRIVER=postgres"))
	}

	// migrations run once below with the flag overrides, not during startup
	cfg.DatabaseMigrateOnStart = false
	if cmd.Flags().Changed("version") {
		cfg.DatabaseMigrationVersion = migrateVersion
	}
	if cmd.Flags().Changed("force") {
		cfg.DatabaseMigrationForce = migrateForce
	}

	return runApp(cfg, func(ctx context.Context, a *app.App) error {
		return a.Migrate()
	})
}
