package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
	itemhttp "github.com/sagarc03/itemgate/http"
	"github.com/sagarc03/itemgate/keybackend"
	"github.com/sagarc03/itemgate/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the itemgate HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 4173, "HTTP server port")
	serveCmd.Flags().String("base-path", "", "path prefix for item routes (default: /file_api)")
	serveCmd.Flags().String("oracle", "", "credential oracle: remote, static")
	serveCmd.Flags().String("oracle-url", "", "remote oracle validation URL")
	serveCmd.Flags().String("tokens-file", "", "JSON file of static tokens")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, cfg.Storage, cfg.Storage.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := newItemStore(cfg, backend)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.Noop{}
	var metricsHandler http.Handler
	if cfg.Server.Metrics {
		recorder = metrics.NewProm("itemgate")
		metricsHandler = metrics.Handler()
	}

	oracle, err := keybackend.NewOracle(cfg.Auth.Config)
	if err != nil {
		return fmt.Errorf("create oracle: %w", err)
	}
	if static, ok := oracle.(*keybackend.MapOracle); ok && static.Len() == 0 {
		slog.Warn("static oracle has no tokens, every request will be rejected")
	}

	cache, err := itemgate.NewValidationCache(oracle, itemgate.CacheConfig{
		MaxEntries: cfg.Auth.Cache.MaxEntries,
		TTL:        time.Duration(cfg.Auth.Cache.TTL) * time.Second,
		Observer:   recorder,
	})
	if err != nil {
		return fmt.Errorf("create validation cache: %w", err)
	}

	handlerConfig := itemhttp.HandlerConfig{
		BasePath:       cfg.Server.BasePath,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		CORS:           cfg.CORS,
		Observer:       recorder,
		MetricsHandler: metricsHandler,
	}

	handler := itemhttp.NewHandler(&handlerConfig, store, itemgate.NewAuthorizer(cache))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"base_path", cfg.Server.BasePath,
		"storage", cfg.Storage.Type,
		"oracle", cfg.Auth.Type,
		"metrics", cfg.Server.Metrics,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
