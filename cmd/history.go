package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyTheme bool

var historyCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "List the saved versions of a document",
	Long: `List the retained versions of a presentation (or a theme with --theme),
newest first. Position 0 is the content right before the latest save.

Examples:
  deckeditor history slides
  deckeditor history default --theme`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyTheme, "theme", false, "Operate on a theme instead of a presentation")
}

func runHistory(cmd *cobra.Command, args []string) error {
	_, a, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := storeFor(a, historyTheme).History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POSITION\tSAVED\tSIZE\tLABEL")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", e.Position, e.CreatedAt.Local().Format(time.DateTime), e.Size, e.Label)
	}
	return w.Flush()
}
