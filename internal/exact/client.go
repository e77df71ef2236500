package exact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/TimPelgrim/exactonline-mcp/internal/auth"
)

const (
	requestTimeout = 30 * time.Second

	// Transport failures get exactly one retry after a short fixed delay.
	networkRetryDelay = 1 * time.Second

	// Upstream 429 handling: exponential backoff starting at backoffBase,
	// doubling, at most maxRateAttempts attempts in total.
	maxRateAttempts = 3
	backoffBase     = 1 * time.Second
	backoffCap      = 8 * time.Second
)

// TokenSource supplies a fresh access token before each upstream call.
// *auth.OAuth2Client is the production implementation.
type TokenSource interface {
	ValidToken(ctx context.Context) (*auth.Token, error)
}

// Client executes authenticated, rate-limited OData GET requests against the
// Exact Online REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	limiter    *RateLimiter
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time

	mu     sync.Mutex
	cached *auth.Token
}

// NewClient creates an API client. The token source and rate limiter are
// injected so tests can substitute fakes.
func NewClient(baseURL string, tokens TokenSource, limiter *RateLimiter, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
		sleep:   sleepContext,
		now:     time.Now,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Get fetches one page from an endpoint and returns the normalized record
// list. Some endpoints wrap rows in d.results, others return d as a bare
// array; both shapes come back as a flat slice.
func (c *Client) Get(ctx context.Context, division int, endpoint string, spec QuerySpec) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/api/v1/%d/%s", c.baseURL, division, endpoint)
	if query := spec.Encode(); query != "" {
		url += "?" + query
	}

	body, err := c.fetch(ctx, url, endpoint, division)
	if err != nil {
		return nil, err
	}
	return normalizeResults(body)
}

// GetAllPaginated fetches every record from an endpoint by walking $skip in
// increasing order and concatenating pages, preserving upstream ordering.
func (c *Client) GetAllPaginated(ctx context.Context, division int, endpoint string, spec QuerySpec) ([]map[string]any, error) {
	pageSize := spec.Top
	if pageSize <= 0 {
		pageSize = MaxTop
	}
	pageSize = ClampTop(pageSize)

	var all []map[string]any
	skip := 0
	for {
		page := spec
		page.Top = pageSize
		page.Skip = skip

		results, err := c.Get(ctx, division, endpoint, page)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			break
		}
		all = append(all, results...)
		if len(results) < pageSize {
			break
		}
		skip += pageSize
	}
	return all, nil
}

// CurrentDivision returns the authenticated user's default division code.
func (c *Client) CurrentDivision(ctx context.Context) (int, error) {
	url := c.baseURL + "/api/v1/current/Me?%24select=CurrentDivision"
	body, err := c.fetch(ctx, url, "current/Me", 0)
	if err != nil {
		return 0, err
	}
	results, err := normalizeResults(body)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, newUpstreamError(0, "current/Me returned no records")
	}
	return mapInt(results[0], "CurrentDivision"), nil
}

// Divisions lists every division the user can access, sorted by name, with
// the current division flagged.
func (c *Client) Divisions(ctx context.Context) ([]Division, error) {
	current, err := c.CurrentDivision(ctx)
	if err != nil {
		return nil, err
	}

	results, err := c.Get(ctx, current, "hrm/Divisions", QuerySpec{
		Select:  []string{"Code", "Description", "HID"},
		OrderBy: "Description",
	})
	if err != nil {
		return nil, err
	}

	divisions := make([]Division, 0, len(results))
	for _, item := range results {
		code := mapInt(item, "Code")
		if code == 0 {
			continue
		}
		name := mapString(item, "Description")
		if name == "" {
			name = fmt.Sprintf("Division %d", code)
		}
		divisions = append(divisions, Division{
			Code:      code,
			Name:      name,
			IsCurrent: code == current,
		})
	}

	sort.Slice(divisions, func(i, j int) bool { return divisions[i].Name < divisions[j].Name })
	return divisions, nil
}

type attemptClass int

const (
	attemptOK attemptClass = iota
	attemptNetwork
	attemptAuthExpired
	attemptRateLimited
	attemptFatal
)

// attemptOutcome is the explicit result of one request attempt: success, a
// retryable failure class, or a fatal error.
type attemptOutcome struct {
	class      attemptClass
	body       []byte
	retryAfter int
	err        error
}

// fetch runs the bounded retry loop around single request attempts.
func (c *Client) fetch(ctx context.Context, url, endpoint string, division int) ([]byte, error) {
	networkRetries := 0
	authRetries := 0
	rateAttempts := 0

	for {
		outcome := c.attempt(ctx, url, endpoint, division)
		switch outcome.class {
		case attemptOK:
			return outcome.body, nil

		case attemptNetwork:
			if networkRetries >= 1 {
				if apiErr, ok := AsError(outcome.err); ok {
					return nil, apiErr
				}
				return nil, newNetworkError(outcome.err.Error())
			}
			networkRetries++
			c.logger.Warn("transport failure, retrying once", "endpoint", endpoint, "error", outcome.err)
			if err := c.sleep(ctx, networkRetryDelay); err != nil {
				return nil, err
			}

		case attemptAuthExpired:
			if authRetries >= 1 {
				return nil, newAuthorizationRequired("Upstream rejected the access token")
			}
			authRetries++
			c.logger.Warn("401 from upstream, discarding cached token", "endpoint", endpoint)
			c.resetToken()

		case attemptRateLimited:
			rateAttempts++
			if rateAttempts >= maxRateAttempts {
				return nil, newRateLimitExceeded(outcome.retryAfter)
			}
			delay := backoffDelay(rateAttempts, outcome.retryAfter)
			c.logger.Warn("rate limited by upstream, backing off", "endpoint", endpoint, "delay", delay.String(), "attempt", rateAttempts)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}

		default:
			return nil, outcome.err
		}
	}
}

// backoffDelay picks the wait before the next attempt after an upstream 429:
// the Retry-After hint when present, otherwise exponential from backoffBase.
func backoffDelay(attempt, retryAfter int) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay
}

// attempt performs one rate-limited, authenticated GET and classifies the
// result. It never retries on its own.
func (c *Client) attempt(ctx context.Context, url, endpoint string, division int) attemptOutcome {
	if err := c.limiter.Acquire(ctx); err != nil {
		return attemptOutcome{class: attemptFatal, err: err}
	}

	accessToken, err := c.ensureToken(ctx)
	if err != nil {
		if apiErr, ok := AsError(err); ok && apiErr.Kind == KindNetworkError {
			return attemptOutcome{class: attemptNetwork, err: err}
		}
		return attemptOutcome{class: attemptFatal, err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return attemptOutcome{class: attemptFatal, err: newUpstreamError(0, fmt.Sprintf("failed to build request: %v", err))}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return attemptOutcome{class: attemptFatal, err: ctx.Err()}
		}
		return attemptOutcome{class: attemptNetwork, err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptOutcome{class: attemptNetwork, err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				retryAfter = n
			}
		}
		return attemptOutcome{class: attemptRateLimited, retryAfter: retryAfter}

	case resp.StatusCode == http.StatusUnauthorized:
		return attemptOutcome{class: attemptAuthExpired}

	case resp.StatusCode == http.StatusNotFound:
		return attemptOutcome{class: attemptFatal, err: newEndpointNotFound(endpoint)}

	case resp.StatusCode == http.StatusForbidden:
		return attemptOutcome{class: attemptFatal, err: newDivisionNotAccessible(division)}

	case resp.StatusCode >= 400:
		return attemptOutcome{class: attemptFatal, err: newUpstreamError(resp.StatusCode, upstreamMessage(resp.StatusCode, body))}
	}

	return attemptOutcome{class: attemptOK, body: body}
}

// upstreamMessage extracts the error message the upstream embeds in its
// error payload. The raw body is never included wholesale: it may echo
// request headers.
func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Error struct {
			Message struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message.Value != "" {
		return payload.Error.Message.Value
	}
	return fmt.Sprintf("API error: %d", status)
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && !c.cached.IsExpired() {
		return c.cached.AccessToken, nil
	}

	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return "", mapAuthError(err)
	}
	c.cached = token
	return token.AccessToken, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return newAuthorizationRequired("No stored token")
	case errors.Is(err, auth.ErrReauthenticationRequired):
		return newReauthenticationRequired()
	case errors.Is(err, auth.ErrTokenEndpointUnavailable):
		// The refresh token is presumed fine; only the connection failed.
		return newNetworkError(err.Error())
	default:
		return newAuthorizationRequired(err.Error())
	}
}

// normalizeResults flattens both upstream response shapes into a record
// slice: {"d": {"results": [...]}} and {"d": [...]}.
func normalizeResults(body []byte) ([]map[string]any, error) {
	var envelope struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, newUpstreamError(0, fmt.Sprintf("unparseable response: %v", err))
	}
	if len(envelope.D) == 0 {
		return nil, nil
	}

	var wrapped struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(envelope.D, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(envelope.D, &list); err == nil {
		return list, nil
	}

	return nil, nil
}
