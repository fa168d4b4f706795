package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsprackett/ai-battery/internal/db"
	"github.com/zsprackett/ai-battery/internal/display"
	"github.com/zsprackett/ai-battery/internal/events"
	"github.com/zsprackett/ai-battery/internal/notify"
	"github.com/zsprackett/ai-battery/internal/tray"
	"github.com/zsprackett/ai-battery/internal/usagepoller"
	"github.com/zsprackett/ai-battery/internal/webserver"
)

// fetchArgs re-invokes this binary's fetch command with the same config.
func (rt *runtime) fetchArgs() []string {
	args := []string{"fetch"}
	if rt.cfgFile != "" {
		args = append(args, "--config", rt.cfgFile)
	}
	if rt.logLevel != "" {
		args = append(args, "--log-level", rt.logLevel)
	}
	return args
}

func (rt *runtime) fetchFunc() (usagepoller.FetchFunc, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return usagepoller.Subprocess(exe, rt.fetchArgs(), rt.cfg.Fetch.Timeout), nil
}

func newTrayCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tray",
		Short: "Run the menu-bar battery (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := rt.setupLogging(false)
			defer closeLog()
			cfg := rt.cfg
			logger.Info("tray: starting", "snapshot", cfg.SnapshotPath, "interval", cfg.RefreshInterval)

			fetchFn, err := rt.fetchFunc()
			if err != nil {
				return err
			}

			var store *db.DB
			if s, err := rt.openStore(); err != nil {
				logger.Warn("tray: history unavailable", "err", err)
			} else {
				store = s
				defer store.Close()
			}

			notifier := notify.New(notify.Config{
				Enabled: cfg.Notifications.Enabled,
				Webhook: cfg.Notifications.Webhook,
				NtfyURL: cfg.Notifications.NtfyURL,
			}, logger)

			var poller *usagepoller.Poller
			var broadcaster events.Broadcaster
			web := webserver.New(webserver.StateFunc(func() display.State { return poller.State() }), store, webserver.Config{
				Enabled: cfg.Webserver.Enabled,
				Port:    cfg.Webserver.Port,
				Host:    cfg.Webserver.Host,
			}, logger)
			if cfg.Webserver.Enabled {
				broadcaster = web
			}

			poller = usagepoller.New(usagepoller.Config{
				Interval:     cfg.RefreshInterval,
				SnapshotPath: cfg.SnapshotPath,
			}, fetchFn, notifier, broadcaster, nil, logger)

			t := tray.New(poller, logger)
			poller.SetOnUpdate(t.Update)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if _, err := web.Start(ctx); err != nil {
				logger.Warn("tray: webserver failed to start", "err", err)
			}

			watcher, err := tray.NewWatcher(cfg.SnapshotPath, tray.DefaultDebounce, poller.Reload, logger)
			if err != nil {
				logger.Warn("tray: snapshot watcher unavailable", "err", err)
			} else {
				defer watcher.Close()
			}

			t.Run()
			return nil
		},
	}
}
