// Command rtcobott-web runs the card catalog admin console.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rocketstradingco/RTCObott/internal/cache"
	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/config"
	"github.com/Rocketstradingco/RTCObott/internal/handlers"
	"github.com/Rocketstradingco/RTCObott/internal/render"
	"github.com/Rocketstradingco/RTCObott/internal/router"
	"github.com/Rocketstradingco/RTCObott/internal/session"
	"github.com/Rocketstradingco/RTCObott/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	valkey, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("valkey connect failed", "error", err)
		os.Exit(1)
	}
	defer valkey.Close()

	sessions := session.NewStore(valkey, !cfg.IsDev())
	pages := cache.NewPageCache(valkey, cache.DefaultPageTTL)

	renderer, err := render.New()
	if err != nil {
		slog.Error("template parse failed", "error", err)
		os.Exit(1)
	}

	store := catalog.NewStore(cfg.DataFile)

	var uploads storage.Storage
	if cfg.S3Configured() {
		s3, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("s3 init failed", "error", err)
			os.Exit(1)
		}
		uploads = s3
		slog.Info("media uploads using s3", "bucket", cfg.S3Bucket)
	} else {
		uploads = storage.NewLocal(cfg.UploadDir, "/uploads/")
		slog.Info("media uploads using local disk", "dir", cfg.UploadDir)
	}

	auth, err := handlers.NewAuth(renderer, sessions, cfg.AdminPassword, cfg.AdminTOTPSecret)
	if err != nil {
		slog.Error("auth init failed", "error", err)
		os.Exit(1)
	}
	console := handlers.NewConsole(renderer, store, uploads, pages)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.New(cfg, sessions, auth, console),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("console listening", "addr", cfg.Addr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}
