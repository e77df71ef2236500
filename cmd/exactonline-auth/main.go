// Command exactonline-auth runs the one-time interactive OAuth2 flow: it
// opens the Exact Online consent page, receives the callback on localhost
// and stores the resulting tokens. Run it once before starting the server,
// and again whenever the refresh token expires.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/TimPelgrim/exactonline-mcp/config"
	"github.com/TimPelgrim/exactonline-mcp/internal/auth"
	"github.com/TimPelgrim/exactonline-mcp/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "exactonline-auth: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: "text",
		Level:  logging.ParseLevel(cfg.Log.Level),
	})

	storage := auth.OpenStorage(cfg.StorageDir, logger)
	oauth := auth.NewOAuth2Client(cfg.ClientID, cfg.ClientSecret, cfg.BaseURL(), cfg.RedirectURI, storage)
	flow := auth.NewFlow(oauth, cfg.StorageDir, cfg.RedirectURI, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := flow.Run(ctx); err != nil {
		return err
	}

	fmt.Println("Authentication successful. Tokens stored; the MCP server is ready to use.")
	return nil
}
