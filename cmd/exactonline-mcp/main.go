// Command exactonline-mcp runs the Exact Online MCP server over stdio.
// Stdout carries the protocol stream; all logging goes to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/TimPelgrim/exactonline-mcp/config"
	"github.com/TimPelgrim/exactonline-mcp/internal/auth"
	"github.com/TimPelgrim/exactonline-mcp/internal/exact"
	"github.com/TimPelgrim/exactonline-mcp/internal/logging"
	"github.com/TimPelgrim/exactonline-mcp/internal/tools"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "exactonline-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
	})

	storage := auth.OpenStorage(cfg.StorageDir, logger)
	oauth := auth.NewOAuth2Client(cfg.ClientID, cfg.ClientSecret, cfg.BaseURL(), cfg.RedirectURI, storage)
	limiter := exact.NewRateLimiter(logger)
	client := exact.NewClient(cfg.BaseURL(), oauth, limiter, logger)

	server := tools.NewServer(version, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting MCP server",
		"version", version,
		"region", cfg.Region,
	)
	return server.Run(ctx, &mcp.StdioTransport{})
}
