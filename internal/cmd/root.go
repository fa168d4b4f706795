package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zsprackett/ai-battery/internal/applog"
	"github.com/zsprackett/ai-battery/internal/config"
	"github.com/zsprackett/ai-battery/internal/db"
)

// runtime is shared by every subcommand of one root command.
type runtime struct {
	v        *viper.Viper
	cfgFile  string
	logLevel string
	cfg      config.Config
}

// NewRootCmd builds the aibattery command tree. With no subcommand it runs
// the tray.
func NewRootCmd() *cobra.Command {
	rt := &runtime{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "aibattery",
		Short: "Menu-bar battery for AI usage limits",
		Long: `aibattery shows how much of your Claude usage allowance is left as a
battery in the macOS menu bar. The "fetch" command collects a snapshot;
the tray reads it on a timer and whenever it changes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.loadConfig()
		},
	}

	root.PersistentFlags().StringVarP(&rt.cfgFile, "config", "c", "", "config file (default is ~/.ai-battery/config.json)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "log level: debug, info, warn or error")
	_ = rt.v.BindPFlag("logLevel", root.PersistentFlags().Lookup("log-level"))

	trayCmd := newTrayCmd(rt)
	root.RunE = trayCmd.RunE

	root.AddCommand(
		trayCmd,
		newFetchCmd(rt),
		newStatusCmd(rt),
		newHistoryCmd(rt),
		newIconsCmd(rt),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func (rt *runtime) loadConfig() error {
	path := rt.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Read(rt.v, path)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	return nil
}

// setupLogging opens the rotating log file. stderr mirrors records to the
// terminal. If the file cannot be opened logging falls back to slog.Default.
func (rt *runtime) setupLogging(stderr bool) (*slog.Logger, func()) {
	logger, closer, err := applog.Init(applog.InitConfig{
		LogDir:   rt.cfg.LogDir,
		LogLevel: rt.cfg.LogLevel,
		Stderr:   stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		return slog.Default(), func() {}
	}
	return logger, func() { closer.Close() }
}

// openStore opens and migrates the history database.
func (rt *runtime) openStore() (*db.DB, error) {
	if err := os.MkdirAll(filepath.Dir(rt.cfg.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := db.Open(rt.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return store, nil
}
