package cmd

import (
	"fmt"

	"forumline/internal/storage"

	"github.com/spf13/cobra"
)

// dbCmd groups database subcommands.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		db, err := storage.OpenMigrationDB(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := storage.Migrate(db, cfg.Database.Driver, cfg.Database.Migrations); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which migrations are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		db, err := storage.OpenMigrationDB(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		return storage.MigrationStatus(db, cfg.Database.Driver, cfg.Database.Migrations)
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(migrateCmd)
	dbCmd.AddCommand(migrateStatusCmd)
}
