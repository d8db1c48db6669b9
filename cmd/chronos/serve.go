package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/chronos/internal/chat"
	"github.com/MrWong99/chronos/internal/completion"
	"github.com/MrWong99/chronos/internal/config"
	"github.com/MrWong99/chronos/internal/health"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/portrait"
	"github.com/MrWong99/chronos/internal/speech"
	"github.com/MrWong99/chronos/internal/web"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "listen address (overrides server.listen_addr)")
	cmd.Flags().StringSlice("origin", nil, "extra origin patterns allowed to open a websocket")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Logging and configuration ─────────────────────────────────────────────
	level := new(slog.LevelVar)
	slog.SetDefault(newLogger(level))

	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level.Set(slogLevel(cfg.Server.LogLevel))
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	origins, _ := cmd.Flags().GetStringSlice("origin")

	// ── Signal handling ───────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Providers and storage ─────────────────────────────────────────────────
	st, err := newStack(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("close progress store", "err", err)
		}
	}()

	sessions := chat.NewManager(st.sessionDeps(cfg, metrics))
	defer sessions.CloseAll(context.Background())

	var portraits *portrait.Client
	if cfg.Portrait.Enabled {
		var opts []portrait.Option
		if cfg.Portrait.BaseURL != "" {
			opts = append(opts, portrait.WithBaseURL(cfg.Portrait.BaseURL))
		}
		portraits = portrait.New(opts...)
	}

	srv := web.New(web.Config{
		Sessions:       sessions,
		Completion:     st.completion,
		Progress:       st.progress,
		TTS:            st.providers.TTS,
		TTSName:        st.providers.TTSName,
		Translator:     st.providers.Translator,
		Voices:         speech.CatalogFromConfig(cfg.Voices),
		Portraits:      portraits,
		Health:         health.New(readinessChecks(st)...),
		Metrics:        metrics,
		StaticDir:      cfg.Server.StaticDir,
		OriginPatterns: origins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var watcher *config.Watcher
	if cfgPath != "" {
		watcher, err = config.NewWatcher(cfgPath, func(old, new *config.Config) {
			applyReload(config.Diff(old, new), new, level, srv, sessions)
		})
		if err != nil {
			return err
		}
	}

	printStartupSummary(cfg)

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", cfg.Server.ListenAddr, "tls", cfg.Server.TLS != nil)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("goodbye")
	return nil
}

// applyReload applies the hot-reloadable parts of a config change.
func applyReload(d config.ConfigDiff, cfg *config.Config, level *slog.LevelVar, srv *web.Server, sessions *chat.Manager) {
	if d.Empty() {
		return
	}
	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.VoicesChanged {
		srv.SetVoices(speech.CatalogFromConfig(d.NewVoices))
		slog.Info("voice catalog reloaded", "male", d.NewVoices.Male, "female", d.NewVoices.Female)
	}
	if d.TurnDelayChanged {
		sessions.SetTurnDelay(cfg.Debate.TurnDelay)
		slog.Info("debate turn delay changed", "delay", cfg.Debate.TurnDelay)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config sections changed that need a restart", "sections", d.RestartRequired)
	}
}

func readinessChecks(st *stack) []health.Checker {
	checks := []health.Checker{
		{
			Name: "llm",
			Check: func(context.Context) error {
				if !st.completion.Configured() {
					return completion.ErrNotConfigured
				}
				return nil
			},
		},
		{
			Name: "progress",
			Check: func(ctx context.Context) error {
				_, err := st.progress.Get(ctx)
				return err
			},
		},
	}
	if st.providers.TTS == nil {
		checks = append(checks, health.Checker{
			Name:     "tts",
			Optional: true,
			Check:    func(context.Context) error { return errors.New("not configured, using browser speech") },
		})
	}
	if st.providers.Translator == nil {
		checks = append(checks, health.Checker{
			Name:     "translate",
			Optional: true,
			Check:    func(context.Context) error { return errors.New("not configured, using English speech") },
		})
	}
	return checks
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	w := os.Stdout
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║         Chronos: startup summary      ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	fmt.Fprintf(w, "║  TTS fallbacks   : %-19d ║\n", len(cfg.Providers.TTSFallbacks))
	printProvider("Translate", cfg.Providers.Translate.Name, "")
	fmt.Fprintf(w, "║  Progress        : %-19s ║\n", cfg.Progress.Backend)
	fmt.Fprintf(w, "║  Turn delay      : %-19s ║\n", cfg.Debate.TurnDelay)
	fmt.Fprintf(w, "║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}
