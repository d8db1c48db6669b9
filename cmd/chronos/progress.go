package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/progress"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect or reset the learner's quiz progress",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print points, badges and figures learned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProgress(cmd, func(s *progress.Store) error {
				p, err := s.Get(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProgress(p))
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Erase all points, badges and figures learned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("reset erases all progress; pass --yes to confirm")
			}
			return withProgress(cmd, func(s *progress.Store) error {
				if err := s.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
				return nil
			})
		},
	}
	reset.Flags().Bool("yes", false, "confirm the reset")

	cmd.AddCommand(show, reset)
	return cmd
}

// withProgress opens the configured progress store for the duration of fn.
func withProgress(cmd *cobra.Command, fn func(*progress.Store) error) error {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	slog.SetDefault(newLogger(level))

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Progress.Backend == config.ProgressMemory {
		slog.Warn("progress backend is memory; nothing persists between runs")
	}

	backend, err := progress.Open(cmd.Context(), cfg.Progress)
	if err != nil {
		return fmt.Errorf("open progress store: %w", err)
	}
	defer backend.Close()
	return fn(progress.NewStore(backend, cfg.Progress.Key))
}
