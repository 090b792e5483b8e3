/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PhaseWing/internal/auth"
	"github.com/josephgoksu/PhaseWing/internal/config"
	"github.com/josephgoksu/PhaseWing/internal/extract"
	"github.com/josephgoksu/PhaseWing/internal/llm"
	"github.com/josephgoksu/PhaseWing/internal/logger"
	"github.com/josephgoksu/PhaseWing/internal/phase"
	"github.com/josephgoksu/PhaseWing/internal/queue"
	"github.com/josephgoksu/PhaseWing/internal/server"
	"github.com/josephgoksu/PhaseWing/internal/store"
	"github.com/josephgoksu/PhaseWing/internal/synth"
	"github.com/josephgoksu/PhaseWing/internal/telemetry"
	"github.com/josephgoksu/PhaseWing/internal/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PhaseWing HTTP API",
	Long: `Start the HTTP API used by the web UI: accounts, projects and features,
phase forms, the mapper, prompt synthesis, the completion queue and the
transcription proxy.

Phase override files in the phases directory are reloaded when they change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", config.DefaultHost, "address to listen on")
	serveCmd.Flags().Int("port", config.DefaultPort, "port to listen on")
	serveCmd.Flags().String("data-dir", "", "directory holding the database (default: resolved data dir)")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("store.path", serveCmd.Flags().Lookup("data-dir"))
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}
	logger.SetBasePath(cfg.DataDir)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if _, err := st.EnsureAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	phases, err := phase.Load(afero.NewOsFs(), cfg.PhasesDir)
	if err != nil {
		return fmt.Errorf("failed to load phases: %w", err)
	}

	chatModel, provider := openChatModel(ctx)
	var completions *queue.Queue
	if chatModel != nil {
		completions = queue.New(queue.ModelCompleter{Model: chatModel}, queue.Options{
			RateLimitDelay: cfg.Queue.RateLimitDelay,
			ResultTTL:      cfg.Queue.ResultTTL,
			Timeout:        cfg.Queue.Timeout,
		})
	}

	tel := newTelemetry(cfg.DataDir)
	defer func() { _ = tel.Close() }()

	srv := server.New(server.Deps{
		Store:       st,
		Auth:        auth.NewService(st, cfg.SessionTTL),
		Phases:      phases,
		Extractor:   extract.New(extract.DefaultRules),
		Synth:       synth.New(chatModel, phases, provider),
		Queue:       completions,
		Transcriber: transcribe.NewClient(cfg.Transcribe.URL, cfg.Transcribe.Timeout),
		Telemetry:   tel,
	}, server.Options{
		Addr:         cfg.Addr(),
		CORSOrigins:  cfg.CORSOrigins,
		DashboardURL: cfg.DashboardURL,
		Version:      version,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)
	watchPhases(ctx, &wg, phases, cfg.PhasesDir)
	tel.Track(telemetry.EventServerStarted, telemetry.Properties{"llm": chatModel != nil})

	select {
	case err = <-errChan:
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, context.Canceled) {
		slog.Warn("server shutdown", "error", serr)
	}
	stop()
	wg.Wait()
	return err
}

// openChatModel returns nil when no provider is usable; the AI routes then
// answer 503 and the rest of the API keeps working.
func openChatModel(ctx context.Context) (model.BaseChatModel, string) {
	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		slog.Warn("AI features disabled", "error", err)
		return nil, ""
	}
	chatModel, err := llm.NewChatModel(ctx, llmCfg)
	if err != nil {
		slog.Warn("AI features disabled", "provider", llmCfg.Provider, "error", err)
		return nil, string(llmCfg.Provider)
	}
	slog.Info("AI provider ready", "provider", llmCfg.Provider, "model", llmCfg.Model)
	return chatModel, string(llmCfg.Provider)
}

func newTelemetry(dataDir string) telemetry.Client {
	client, err := telemetry.New(telemetry.Options{
		Enabled:  viper.GetBool("telemetry.enabled"),
		APIKey:   viper.GetString("telemetry.api_key"),
		Endpoint: viper.GetString("telemetry.endpoint"),
		Version:  version,
		DataDir:  dataDir,
	})
	if err != nil {
		slog.Debug("telemetry disabled", "error", err)
		return telemetry.NewNoopClient()
	}
	return client
}

// watchPhases reloads phase overrides in the background. A missing
// directory just means there is nothing to watch.
func watchPhases(ctx context.Context, wg *sync.WaitGroup, reg *phase.Registry, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	w, err := phase.NewWatcher(reg, dir)
	if err != nil {
		slog.Warn("phase overrides will not reload", "dir", dir, "error", err)
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
}
