package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// AIBATTERY_FETCH_SOURCE=scrape.
const EnvPrefix = "AIBATTERY"

type FetchConfig struct {
	Source          string        `mapstructure:"source" json:"source"` // "api", "scrape" or "auto"
	Timeout         time.Duration `mapstructure:"timeout" json:"timeout"`
	Command         string        `mapstructure:"command" json:"command"`
	Args            []string      `mapstructure:"args" json:"args"`
	Rows            int           `mapstructure:"rows" json:"rows"`
	Cols            int           `mapstructure:"cols" json:"cols"`
	Settle          time.Duration `mapstructure:"settle" json:"settle"`
	ScrapeTimeout   time.Duration `mapstructure:"scrapeTimeout" json:"scrapeTimeout"`
	UsageURL        string        `mapstructure:"usageURL" json:"usageURL"`
	KeychainService string        `mapstructure:"keychainService" json:"keychainService"`
}

type NotificationsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Webhook string `mapstructure:"webhook" json:"webhook"`
	NtfyURL string `mapstructure:"ntfy" json:"ntfy"`
}

type WebserverConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Port    int    `mapstructure:"port" json:"port"`
	Host    string `mapstructure:"host" json:"host"`
}

type Config struct {
	RefreshInterval time.Duration       `mapstructure:"refreshInterval" json:"refreshInterval"`
	SnapshotPath    string              `mapstructure:"snapshotPath" json:"snapshotPath"`
	LogDir          string              `mapstructure:"logDir" json:"logDir"`
	LogLevel        string              `mapstructure:"logLevel" json:"logLevel"`
	DBPath          string              `mapstructure:"dbPath" json:"dbPath"`
	HistoryDays     int                 `mapstructure:"historyDays" json:"historyDays"`
	Fetch           FetchConfig         `mapstructure:"fetch" json:"fetch"`
	Notifications   NotificationsConfig `mapstructure:"notifications" json:"notifications"`
	Webserver       WebserverConfig     `mapstructure:"webserver" json:"webserver"`
}

func Defaults() Config {
	return Config{
		RefreshInterval: 10 * time.Minute,
		SnapshotPath:    DefaultSnapshotPath(),
		LogDir:          filepath.Join(DataDir(), "logs"),
		LogLevel:        "info",
		DBPath:          filepath.Join(DataDir(), "history.db"),
		HistoryDays:     30,
		Fetch: FetchConfig{
			Source:          "auto",
			Timeout:         60 * time.Second,
			Command:         "claude",
			Args:            []string{"/usage"},
			Rows:            40,
			Cols:            120,
			Settle:          3 * time.Second,
			ScrapeTimeout:   30 * time.Second,
			UsageURL:        "https://api.anthropic.com/api/oauth/usage",
			KeychainService: "Claude Code-credentials",
		},
		Webserver: WebserverConfig{
			Enabled: false,
			Port:    8787,
			Host:    "127.0.0.1",
		},
	}
}

// DataDir is ~/.ai-battery.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ai-battery")
}

func DefaultPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DefaultSnapshotPath is usage-data.json beside the running executable.
func DefaultSnapshotPath() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(DataDir(), "usage-data.json")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "usage-data.json")
}

// NewViper returns a viper instance primed with every default and with
// environment overrides enabled. Callers may bind flags to it before Read.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Every key needs a default so that AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("refreshInterval", d.RefreshInterval)
	v.SetDefault("snapshotPath", d.SnapshotPath)
	v.SetDefault("logDir", d.LogDir)
	v.SetDefault("logLevel", d.LogLevel)
	v.SetDefault("dbPath", d.DBPath)
	v.SetDefault("historyDays", d.HistoryDays)

	v.SetDefault("fetch.source", d.Fetch.Source)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.command", d.Fetch.Command)
	v.SetDefault("fetch.args", d.Fetch.Args)
	v.SetDefault("fetch.rows", d.Fetch.Rows)
	v.SetDefault("fetch.cols", d.Fetch.Cols)
	v.SetDefault("fetch.settle", d.Fetch.Settle)
	v.SetDefault("fetch.scrapeTimeout", d.Fetch.ScrapeTimeout)
	v.SetDefault("fetch.usageURL", d.Fetch.UsageURL)
	v.SetDefault("fetch.keychainService", d.Fetch.KeychainService)

	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.webhook", d.Notifications.Webhook)
	v.SetDefault("notifications.ntfy", d.Notifications.NtfyURL)

	v.SetDefault("webserver.enabled", d.Webserver.Enabled)
	v.SetDefault("webserver.port", d.Webserver.Port)
	v.SetDefault("webserver.host", d.Webserver.Host)
}

// Read merges the JSON file at path (if it exists) into v and decodes the
// result. A missing file is not an error.
func Read(v *viper.Viper, path string) (Config, error) {
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Defaults(), fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Defaults(), fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Defaults(), fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	return Read(NewViper(), path)
}
