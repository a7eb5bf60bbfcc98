package cmd

import (
	"fmt"

	"deckeditor/internal/app"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the default presentation and theme from disk into the database",
	Long: `Copy the default presentation and the default theme from the filesystem
into the database named by DATABASE_URL. Documents that already exist in
the database are left untouched, so the command is safe to repeat.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, a, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Mode != app.ModeDatabase {
		return fmt.Errorf("no database available: set DATABASE_URL to a reachable database")
	}

	// Opening the store in database mode runs the migration.
	if a.MigrationErr != nil {
		return fmt.Errorf("migration failed: %w", a.MigrationErr)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d document(s)\n", a.Migrated)
	return nil
}
