package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/ui"
	"github.com/zsprackett/ai-battery/internal/usagepoller"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newStatusCmd(rt *runtime) *cobra.Command {
	var asJSON, simple bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current usage snapshot",
		Long: `Status shows the last snapshot. On a terminal it opens an interactive
screen (r to fetch, q to quit); otherwise it prints the menu lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := rt.setupLogging(false)
			defer closeLog()

			fetchFn, err := rt.fetchFunc()
			if err != nil {
				return err
			}
			poller := usagepoller.New(usagepoller.Config{
				Interval:     rt.cfg.RefreshInterval,
				SnapshotPath: rt.cfg.SnapshotPath,
			}, fetchFn, nil, nil, nil, logger)

			out := cmd.OutOrStdout()
			tty := isTerminal(out)
			if asJSON || simple || !tty {
				st := poller.ReloadNow(cmd.Context())
				if !st.Loaded {
					st = rt.latestRecorded(logger)
				}
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(display.Summarize(st, time.Now()))
				}
				return ui.RenderSimple(out, st, time.Now(), tty && os.Getenv("NO_COLOR") == "")
			}

			var store *db.DB
			if s, err := rt.openStore(); err != nil {
				logger.Warn("status: history unavailable", "err", err)
			} else {
				store = s
				defer store.Close()
			}
			return ui.NewApp(poller, store, logger).Run()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot with remaining values as JSON")
	cmd.Flags().BoolVar(&simple, "simple", false, "print plain status lines instead of the interactive screen")
	return cmd
}

// latestRecorded rebuilds state from the newest history row. It is used when
// the snapshot file is missing or unreadable, and never creates the database.
func (rt *runtime) latestRecorded(logger *slog.Logger) display.State {
	if _, err := os.Stat(rt.cfg.DBPath); err != nil {
		return display.State{}
	}
	store, err := rt.openStore()
	if err != nil {
		logger.Warn("status: history unavailable", "err", err)
		return display.State{}
	}
	defer store.Close()
	row, err := store.GetLatestUsageSnapshot()
	if err != nil || row == nil {
		return display.State{}
	}
	logger.Debug("status: using latest history row", "ts", row.Time(), "source", row.Source)
	return display.State{Snapshot: row.Snapshot(), Loaded: true, RefreshedAt: row.Time()}
}
