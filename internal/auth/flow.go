package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// FlowTimeout bounds how long the interactive flow waits for the user to
// authorize in the browser.
const FlowTimeout = 2 * time.Minute

type callbackResult struct {
	code  string
	state string
	err   error
}

// Flow runs the interactive OAuth2 authorization-code flow: it serves the
// callback endpoint on localhost:8080, opens the browser to the Exact Online
// login page, waits for the redirect and exchanges the code for a token.
type Flow struct {
	oauth      *OAuth2Client
	storageDir string
	redirect   string
	logger     *slog.Logger
}

// NewFlow creates an interactive authentication flow.
func NewFlow(oauth *OAuth2Client, storageDir, redirectURI string, logger *slog.Logger) *Flow {
	return &Flow{
		oauth:      oauth,
		storageDir: storageDir,
		redirect:   redirectURI,
		logger:     logger,
	}
}

// Run executes the flow and returns the obtained token.
func (f *Flow) Run(ctx context.Context) (*Token, error) {
	authURL, expectedState := f.oauth.AuthorizationURL("")

	results := make(chan callbackResult, 1)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/callback", func(c *gin.Context) {
		if errParam := c.Query("error"); errParam != "" {
			c.Data(http.StatusOK, "text/html", callbackPage("Authentication failed. You can close this window."))
			select {
			case results <- callbackResult{err: fmt.Errorf("%w: %s", ErrAuthorizationFailed, errParam)}:
			default:
			}
			return
		}
		code := c.Query("code")
		if code == "" {
			c.Data(http.StatusOK, "text/html", callbackPage("Missing authorization code. Please try again."))
			return
		}
		c.Data(http.StatusOK, "text/html", callbackPage("Authentication successful! You can close this window and return to the terminal."))
		select {
		case results <- callbackResult{code: code, state: c.Query("state")}:
		default:
		}
	})

	server := &http.Server{Addr: "localhost:8080", Handler: router}
	serverErr := make(chan error, 1)

	useTLS := f.isLocalhost() && strings.HasPrefix(f.redirect, "https://")
	if useTLS {
		certPath, keyPath, err := EnsureLocalhostCert(f.storageDir)
		if err != nil {
			return nil, err
		}
		go func() {
			if err := server.ListenAndServeTLS(certPath, keyPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	} else {
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	f.logger.Info("opening browser for Exact Online authentication", "url", authURL)
	if err := openBrowser(authURL); err != nil {
		f.logger.Warn("could not open browser automatically, visit the URL manually", "error", err)
	}

	var result callbackResult
	select {
	case result = <-results:
	case err := <-serverErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-time.After(FlowTimeout):
		return nil, fmt.Errorf("%w: authorization timed out", ErrAuthorizationFailed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.err != nil {
		return nil, result.err
	}
	if result.state != expectedState {
		return nil, fmt.Errorf("%w: state mismatch", ErrAuthorizationFailed)
	}

	return f.oauth.ExchangeCode(ctx, result.code)
}

func (f *Flow) isLocalhost() bool {
	return strings.Contains(f.redirect, "localhost") || strings.Contains(f.redirect, "127.0.0.1")
}

func callbackPage(message string) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Exact Online Authentication</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 50px;">
    <h1>%s</h1>
</body>
</html>`, message))
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
