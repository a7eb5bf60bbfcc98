package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var restoreTheme bool

var restoreCmd = &cobra.Command{
	Use:   "restore <name> <position>",
	Short: "Restore a document to a saved version",
	Long: `Make the version at <position> the current content. The content being
replaced is kept as the newest version, so a restore can be undone by
restoring position 0.

Examples:
  deckeditor restore slides 0
  deckeditor restore default 2 --theme`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreTheme, "theme", false, "Operate on a theme instead of a presentation")
}

func runRestore(cmd *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[1])
	if err != nil || position < 0 {
		return fmt.Errorf("invalid position %q", args[1])
	}

	_, a, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := storeFor(a, restoreTheme).Restore(cmd.Context(), args[0], position); err != nil {
		return fmt.Errorf("failed to restore: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to position %d\n", args[0], position)
	return nil
}
