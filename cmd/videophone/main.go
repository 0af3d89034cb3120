package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebas/videophone/internal/app"
	"github.com/sebas/videophone/internal/banner"
	"github.com/sebas/videophone/internal/config"
	"github.com/sebas/videophone/internal/logger"
	"github.com/sebas/videophone/internal/reporting"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(os.Stdout, cfg.LogLevel)

	// Create client
	client, err := app.New(cfg, reporting.NewLogReporter(nil))
	if err != nil {
		slog.Error("Failed to create videophone client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	run(client, cfg)
}

func run(client *app.Client, cfg *config.Config) {
	banner.Print("VIDEOPHONE CLIENT", []banner.ConfigLine{
		{Label: "Relay", Value: cfg.RelayURL},
		{Label: "Push", Value: cfg.RelayPushURL},
		{Label: "API", Value: cfg.APIAddr},
		{Label: "Log level", Value: cfg.LogLevel},
	})
	slog.Info("Starting videophone client",
		"relay", cfg.RelayURL,
		"api", cfg.APIAddr,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start client
	go func() {
		if err := client.Start(ctx); err != nil && err != context.Canceled {
			slog.Error("Client error", "error", err)
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig)
	cancel()

	time.Sleep(1 * time.Second)
}
