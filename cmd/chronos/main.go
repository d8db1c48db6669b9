// Command chronos serves historical-figure conversations.
//
// Usage:
//
//	chronos serve [--config config.yaml]
//	chronos chat "Ada Lovelace" [--language en-US]
//	chronos progress show|reset
//
// Credentials are read from the environment after loading an optional .env
// file; the YAML config references them as ${VAR}.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/chronos/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chronos:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chronos",
		Short:         "Talk to, debate with and be quizzed by historical figures",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "dotenv files loaded before the config")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newProgressCmd())
	return root
}

// ── Configuration ─────────────────────────────────────────────────────────────

// loadConfig loads the dotenv files and the YAML config named by the root
// flags. A missing config file at the default path yields the defaults so
// an environment-only setup works; an explicit --config must exist.
func loadConfig(cmd *cobra.Command) (cfg *config.Config, path string, err error) {
	flags := cmd.Root().PersistentFlags()
	envFiles, _ := flags.GetStringSlice("env-file")
	path, _ = flags.GetString("config")

	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, "", err
	}

	cfg, err = config.Load(path)
	switch {
	case err == nil:
		return cfg, path, nil
	case errors.Is(err, fs.ErrNotExist) && !flags.Changed("config"):
		slog.Info("no config file found, using defaults", "path", path)
		cfg, err = config.LoadFromReader(strings.NewReader(""))
		if err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, "", fmt.Errorf("config file %q not found", path)
	default:
		return nil, "", err
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger returns a text logger on stderr whose level follows lvl.
func newLogger(lvl *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer option. YAML decodes numbers as int.
func optInt(opts map[string]any, key string) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
