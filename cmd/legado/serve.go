package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"legado/internal/archive"
	"legado/internal/brain"
	"legado/internal/config"
	"legado/internal/engine"
	"legado/internal/gateway"
	"legado/internal/llm"
	"legado/internal/store"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateway and the refinement engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}

		log, err := newLogger(cfg.Env)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		return runServe(cmd.Context(), cfg, log)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen address (overrides PORT)")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServe(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, backend, err := store.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	log.Info("store opened", zap.String("backend", backend))

	cached, err := store.NewCached(st)
	if err != nil {
		return err
	}

	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
		RPS:    cfg.Gemini.RPS,
		Burst:  cfg.Gemini.Burst,
	})
	if err != nil {
		return err
	}
	defer func() { _ = gemini.Close() }()

	var archiver engine.Archiver
	if cfg.Archive.Enabled() {
		exp, err := archive.NewExporter(archive.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		}, cached)
		if err != nil {
			return err
		}
		archiver = exp
		log.Info("archive exporter enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	eng := engine.New(cached, brain.New(gemini, cfg.VerdictTimeout, log), engine.Config{
		MaxAttempts: cfg.MaxAttempts,
		Archiver:    archiver,
		Logger:      log,
	})

	handler := gateway.NewHandler(eng, cached, log)
	srv := gateway.NewServer(cfg.Port, handler.Routes(), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
