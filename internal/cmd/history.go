package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/ui/dialogs"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded usage snapshots with sparklines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			store, err := rt.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.GetUsageSnapshots(limit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No history recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "Session  %s\n", dialogs.Sparkline(rows, func(s db.UsageSnapshot) int { return s.SessionUsed }))
			fmt.Fprintf(out, "Weekly   %s\n", dialogs.Sparkline(rows, func(s db.UsageSnapshot) int { return s.WeeklyUsed }))
			fmt.Fprintf(out, "Sonnet   %s\n\n", dialogs.Sparkline(rows, func(s db.UsageSnapshot) int { return s.SonnetUsed }))

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSOURCE\tSESSION\tWEEKLY\tSONNET")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d%%\t%d%%\t%d%%\n",
					r.Time().Local().Format("2006-01-02 15:04"), r.Source, r.SessionUsed, r.WeeklyUsed, r.SonnetUsed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", dialogs.HistoryLimit, "number of snapshots to show, newest first")
	return cmd
}
