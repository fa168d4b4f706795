package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zsprackett/ai-battery/internal/claudeusage"
	"github.com/zsprackett/ai-battery/internal/fetch"
	"github.com/zsprackett/ai-battery/internal/scrape"
	"github.com/zsprackett/ai-battery/internal/usage"
)

// newSource is replaced in tests.
var newSource = func(rt *runtime, kind string, logger *slog.Logger) (fetch.Source, error) {
	f := rt.cfg.Fetch
	client := claudeusage.New(f.UsageURL, f.KeychainService, f.Timeout)
	opts := scrape.Options{
		Command: f.Command,
		Args:    f.Args,
		Rows:    uint16(f.Rows),
		Cols:    uint16(f.Cols),
		Settle:  f.Settle,
		Timeout: f.ScrapeTimeout,
	}
	return fetch.New(kind, client, opts, logger)
}

func newFetchCmd(rt *runtime) *cobra.Command {
	var (
		debug   bool
		source  string
		cycleID string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch current usage once and write the snapshot file",
		Long: `Fetch asks the usage API (or scrapes the claude CLI) for the current
usage, writes the snapshot file and records it in the history database.
It exits non-zero when no snapshot could be produced; the previous
snapshot is left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := rt.setupLogging(isatty.IsTerminal(os.Stderr.Fd()))
			defer closeLog()

			if cycleID == "" {
				cycleID = uuid.NewString()
			}
			logger = logger.With("cycle", cycleID)

			kind := source
			if kind == "" {
				kind = rt.cfg.Fetch.Source
			}
			src, err := newSource(rt, kind, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.Fetch.Timeout)
			defer cancel()

			start := time.Now()
			res, err := src.Fetch(ctx)
			if debug && len(res.Raw) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), string(res.Raw))
			}
			if err != nil {
				logger.Error("fetch: failed", "source", kind, "err", err, "elapsed", time.Since(start))
				return fmt.Errorf("fetch usage: %w", err)
			}

			if err := usage.WriteFile(rt.cfg.SnapshotPath, res.Snapshot); err != nil {
				logger.Error("fetch: write snapshot failed", "path", rt.cfg.SnapshotPath, "err", err)
				return err
			}
			logger.Info("fetch: snapshot written",
				"source", res.Source,
				"path", rt.cfg.SnapshotPath,
				"session", res.Snapshot.Claude.Session.PercentUsed,
				"weekly", res.Snapshot.Claude.Weekly.PercentUsed,
				"sonnet", res.Snapshot.Claude.WeeklySonnet.PercentUsed,
				"elapsed", time.Since(start))

			store, err := rt.openStore()
			if err != nil {
				logger.Warn("fetch: history unavailable", "err", err)
				return nil
			}
			defer store.Close()
			if err := store.RecordUsage(res.Snapshot, time.Now(), cycleID, res.Source, rt.cfg.HistoryDays); err != nil {
				logger.Warn("fetch: record history failed", "err", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "print the raw API response or terminal capture")
	cmd.Flags().StringVar(&source, "source", "", "where to read usage: api, scrape or auto (default from config)")
	cmd.Flags().StringVar(&cycleID, "cycle", "", "refresh cycle id for log correlation")
	_ = cmd.Flags().MarkHidden("cycle")
	return cmd
}
