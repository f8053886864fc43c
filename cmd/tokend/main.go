// Package main runs the token layer daemon: the ledger, governance, reward,
// settlement and escrow services behind a single HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrichain-io/token_layer/internal/app/runtime"
)

func main() {
	configPath := flag.String("config", "config/tokend.yaml", "Path to configuration file")
	flag.Parse()

	if v := os.Getenv("TOKEN_CONFIG"); v != "" {
		*configPath = v
	}

	app, err := runtime.NewApplication(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialise application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %s, shutting down", sig)
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	shutdownCtx := context.Background()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}
