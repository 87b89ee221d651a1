// Command rtcobott-bot runs the interaction controller: it serves the
// chat platform's component interactions, drives browse sessions and the
// claim engine, and keeps the claims summary message current.
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

	"github.com/Rocketstradingco/RTCObott/internal/browse"
	"github.com/Rocketstradingco/RTCObott/internal/cache"
	"github.com/Rocketstradingco/RTCObott/internal/catalog"
	"github.com/Rocketstradingco/RTCObott/internal/claims"
	"github.com/Rocketstradingco/RTCObott/internal/config"
	"github.com/Rocketstradingco/RTCObott/internal/dispatch"
	"github.com/Rocketstradingco/RTCObott/internal/gateway"
	"github.com/Rocketstradingco/RTCObott/internal/handlers"
	"github.com/Rocketstradingco/RTCObott/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	store := catalog.NewStore(cfg.DataFile)

	// The claims page cache lives in Valkey shared with the console. The
	// controller still works without it, the page just goes stale until
	// its TTL expires.
	var pages *cache.PageCache
	if valkey, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword); err != nil {
		slog.Warn("valkey unavailable, claims page invalidation disabled", "error", err)
	} else {
		defer valkey.Close()
		pages = cache.NewPageCache(valkey, cache.DefaultPageTTL)
	}

	var resolver gateway.Resolver
	if client := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken); client != nil {
		resolver = client
	} else {
		slog.Warn("no gateway configured, summary publishing disabled")
	}

	publisher := claims.NewPublisher(store, resolver)
	engine := claims.NewEngine(store, func(ctx context.Context, c *catalog.Catalog) {
		if err := publisher.Publish(ctx, c); err != nil {
			slog.Error("claims summary publish failed", "error", err)
		}
		if pages != nil {
			pages.Invalidate(ctx, cache.ClaimsPageKey)
		}
	})

	sessions := browse.NewManager(browse.DefaultTTL)
	defer sessions.Stop()

	dispatcher := dispatch.New(store, engine, sessions)
	bot := handlers.NewBot(dispatcher, store, resolver, cfg.InteractionsToken)

	srv := &http.Server{
		Addr:         cfg.BotAddr(),
		Handler:      router.NewBot(bot),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("interaction controller listening", "addr", cfg.BotAddr(), "env", cfg.Env)
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
