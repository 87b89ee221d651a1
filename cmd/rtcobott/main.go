// Command rtcobott supervises the two service processes: the admin
// console (rtcobott-web) and the interaction controller (rtcobott-bot).
// Both children inherit the environment; a signal or the exit of either
// child brings the whole pair down.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range []string{"rtcobott-web", "rtcobott-bot"} {
		path, err := locate(name)
		if err != nil {
			slog.Error("child binary not found", "name", name, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return run(ctx, name, path)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("child exited", "error", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}

// locate finds a child binary next to the supervisor, falling back to
// PATH.
func locate(name string) (string, error) {
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	return exec.LookPath(name)
}

// run starts one child and waits for it. On context cancellation the
// child gets SIGTERM and a grace period before being killed.
func run(ctx context.Context, name, path string) error {
	cmd := exec.CommandContext(ctx, path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	slog.Info("starting", "name", name, "path", path)
	if err := cmd.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
