package cli

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// the SHEETDROP_DATA_DIR env var, or ~/.sheetdrop as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SHEETDROP_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.sheetdrop"
}

// loadConfig layers the YAML config file over the defaults and applies the
// keys viper picked up from the environment on top.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = "sheetdrop.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v := viper.GetString("auth.jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("storage.driver"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := viper.GetString("storage.dsn"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := viper.GetInt("server.port"); v != 0 {
		cfg.Server.Port = v
	}
	return cfg, nil
}

// openStore connects to the configured database, falling back to a SQLite
// file under the data directory.
func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(store.Options{
		Driver:       cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		DataDir:      resolveDataDir(),
		QueryTimeout: config.Duration(cfg.Storage.QueryTimeout, 5*time.Second),
	})
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

// newLogger builds the slog logger from the configured level.
func newLogger(level string, dev bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if dev {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
