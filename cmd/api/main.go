package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atharvad999/adcreative/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "adcreative: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, wires the service and serves until ctx is done.
// Configuration problems are returned before anything listens.
func run(ctx context.Context) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	handler, cleanup, err := buildHandler(cfg, &logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := infra.NewHTTPServer(cfg, handler, &logger).Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
