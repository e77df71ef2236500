package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encoding/json"

	"github.com/google/uuid"
)

var (
	// ErrAuthorizationFailed means the initial code exchange did not produce
	// a token: the code was missing, expired (codes live about 3 minutes) or
	// already consumed.
	ErrAuthorizationFailed = errors.New("authorization code exchange failed - the code may be expired or already used")

	// ErrReauthenticationRequired means the refresh token itself was rejected.
	// This is fatal for the current process; the user has to run the
	// interactive authentication flow again.
	ErrReauthenticationRequired = errors.New("refresh token expired or revoked - please re-authenticate")

	// ErrTokenEndpointUnavailable means the token endpoint could not be
	// reached at all. The stored refresh token may still be good; callers
	// should retry once connectivity is back instead of re-authenticating.
	ErrTokenEndpointUnavailable = errors.New("token endpoint unreachable")
)

// OAuth2Client drives the Exact Online authorization-code flow and keeps the
// stored token fresh.
type OAuth2Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	redirectURI  string
	storage      TokenStorage
	httpClient   *http.Client
}

// NewOAuth2Client creates an OAuth2 client bound to a region base URL.
func NewOAuth2Client(clientID, clientSecret, baseURL, redirectURI string, storage TokenStorage) *OAuth2Client {
	return &OAuth2Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		redirectURI:  redirectURI,
		storage:      storage,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthorizationURL builds the browser URL for the authorization step.
// When state is empty a random nonce is generated. Returns the URL and the
// state the callback must echo back.
func (c *OAuth2Client) AuthorizationURL(state string) (string, string) {
	if state == "" {
		state = uuid.NewString()
	}

	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("response_type", "code")
	params.Set("state", state)

	return c.baseURL + "/api/oauth2/auth?" + params.Encode(), state
}

// ExchangeCode exchanges a one-time authorization code for a token pair and
// persists it.
func (c *OAuth2Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, ErrAuthorizationFailed
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	token, err := c.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
	}

	if err := c.storage.Save(token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}
	return token, nil
}

// Refresh exchanges the refresh token for a new token pair. The new pair is
// persisted before returning because the old refresh token is invalidated by
// the exchange itself.
func (c *OAuth2Client) Refresh(ctx context.Context, token *Token) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token.RefreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	newToken, err := c.tokenRequest(ctx, form)
	if err != nil {
		// Only an answer from the endpoint can tell us the refresh token is
		// dead. A transport failure keeps its own identity so callers can
		// retry rather than send the user back through the consent flow.
		if errors.Is(err, ErrTokenEndpointUnavailable) {
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
	}

	if err := c.storage.Save(newToken); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return newToken, nil
}

// ValidToken loads the stored token and refreshes it when it is within
// RefreshMargin of expiry.
func (c *OAuth2Client) ValidToken(ctx context.Context) (*Token, error) {
	token, err := c.storage.Load()
	if err != nil {
		return nil, err
	}

	if token.IsExpired() {
		return c.Refresh(ctx, token)
	}
	return token, nil
}

func (c *OAuth2Client) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTokenEndpointUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		// Body deliberately omitted: it can echo credentials.
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		ExpiresIn    json.RawMessage `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return nil, errors.New("token response missing access_token or refresh_token")
	}

	return &Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ObtainedAt:   time.Now(),
		ExpiresIn:    parseExpiresIn(payload.ExpiresIn),
	}, nil
}

// parseExpiresIn tolerates both numeric and string expires_in values, which
// the upstream has been observed to vary between.
func parseExpiresIn(raw json.RawMessage) int {
	if len(raw) == 0 {
		return DefaultExpiresIn
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v int
		if _, err := fmt.Sscanf(s, "%d", &v); err == nil && v > 0 {
			return v
		}
	}
	return DefaultExpiresIn
}
