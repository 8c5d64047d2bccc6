package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/cluster-trip/internal/persistence"
	"github.com/talgya/cluster-trip/internal/version"
)

// Setting keys. Each can also come from an EPISIM_* environment variable
// (dashes become underscores) or from a --settings file.
const (
	keySettings  = "settings"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
	keyDB        = "db"
	keyWorkers   = "workers"
	keyListen    = "listen"
	keyRateLimit = "rate-limit"
)

const defaultDBPath = "data/cluster-trip.db"

// Execute runs the clustersim CLI. A failure is logged once through slog;
// the caller only decides the exit status.
func Execute() error {
	return execute(newRootCmd())
}

func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		slog.Error("clustersim failed", "error", err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	v := newSettings()

	rootCmd := &cobra.Command{
		Use:           "clustersim",
		Short:         "Stochastic cluster-and-trip epidemic simulator",
		Long:          "clustersim simulates an epidemic spreading through a population of household clusters linked by a daily cross-cluster trip, with a finite ICU pool and scheduled parameter changes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if path := v.GetString(keySettings); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read settings: %w", err)
				}
			}
			return setupLogging(cmd.ErrOrStderr(), v.GetString(keyLogLevel), v.GetString(keyLogFormat))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keySettings, "", "optional settings file (yaml or toml) for the flags below")
	flags.String(keyLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(keyLogFormat, "text", "log format: text or json")
	flags.String(keyDB, defaultDBPath, "SQLite results database")
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(
		newRunCmd(v),
		newSweepCmd(v),
		newServeCmd(v),
		newValidateCmd(),
		newPlotCmd(v),
	)
	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("EPISIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// setupLogging installs the process-wide slog handler on w.
func setupLogging(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// openDB opens the results database, creating its directory if needed.
func openDB(v *viper.Viper) (*persistence.DB, error) {
	path := v.GetString(keyDB)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", path)
	return db, nil
}
