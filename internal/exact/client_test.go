package exact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimPelgrim/exactonline-mcp/internal/auth"
)

// staticTokens is a TokenSource fake handing out a fixed fresh token.
type staticTokens struct {
	err   error
	calls int
}

func (s *staticTokens) ValidToken(_ context.Context) (*auth.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Token{
		AccessToken:  fmt.Sprintf("token-%d", s.calls),
		RefreshToken: "rt",
		ObtainedAt:   time.Now(),
		ExpiresIn:    600,
	}, nil
}

// flakyTokens fails the first N token requests at the transport level, then
// hands out a fresh token.
type flakyTokens struct {
	failures int
	calls    int
}

func (f *flakyTokens) ValidToken(_ context.Context) (*auth.Token, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("token refresh failed: %w: connection refused", auth.ErrTokenEndpointUnavailable)
	}
	return &auth.Token{
		AccessToken:  "token-recovered",
		RefreshToken: "rt",
		ObtainedAt:   time.Now(),
		ExpiresIn:    600,
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string, tokens TokenSource) (*Client, *[]time.Duration) {
	client := NewClient(baseURL, tokens, NewRateLimiter(nil), discardLogger())
	var sleeps []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return client, &sleeps
}

func TestGet_NormalizesWrappedResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/7095/crm/Accounts", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"d":{"results":[{"Code":"1300"},{"Code":"1400"}]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	results, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1300", mapString(results[0], "Code"))
}

func TestGet_NormalizesBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"d":[{"AccountName":"Acme"}]}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	results, err := client.Get(context.Background(), 7095, "read/financial/AgingReceivablesList", QuerySpec{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Acme", mapString(results[0], "AccountName"))
}

func TestGet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 7095, "bogus/Endpoint", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindEndpointNotFound, apiErr.Kind)
}

func TestGet_ForbiddenMapsToDivision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 1234, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDivisionNotAccessible, apiErr.Kind)
	assert.Equal(t, 1234, apiErr.Division)
}

func TestGet_UnauthorizedResetsTokenOnce(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"), "retry must carry a fresh token")
		fmt.Fprint(w, `{"d":{"results":[]}}`)
	}))
	defer server.Close()

	tokens := &staticTokens{}
	client, _ := newTestClient(server.URL, tokens)
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, 2, tokens.calls)
}

func TestGet_PersistentUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuthorizationRequired, apiErr.Kind)
}

func TestGet_RateLimitedHonorsRetryAfter(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"d":{"results":[{"Code":"1"}]}}`)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server.URL, &staticTokens{})
	results, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, 7*time.Second, (*sleeps)[0])
}

func TestGet_RateLimitedExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, sleeps := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindRateLimitExceeded, apiErr.Kind)
	// Two backoff waits before giving up on the third attempt.
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 1*time.Second, (*sleeps)[0])
	assert.Equal(t, 2*time.Second, (*sleeps)[1])
}

func TestGet_NetworkErrorRetriesOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every request now fails at the transport level

	client, sleeps := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetworkError, apiErr.Kind)
	assert.Len(t, *sleeps, 1, "exactly one transport retry")
}

func TestGet_UpstreamErrorMessageExtracted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":{"value":"Filter is invalid"}}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindUpstreamError, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Filter is invalid", apiErr.Message)
}

func TestGet_TokenRefreshTransportFailure(t *testing.T) {
	tokens := &staticTokens{err: fmt.Errorf("token refresh failed: %w: connection refused", auth.ErrTokenEndpointUnavailable)}
	client, sleeps := newTestClient("http://unused", tokens)

	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetworkError, apiErr.Kind, "an unreachable token endpoint is a network failure, not an auth failure")
	assert.Len(t, *sleeps, 1, "refresh transport failures get the single transport retry")
	assert.Equal(t, 2, tokens.calls)
}

func TestGet_TokenRefreshRecoversOnRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"d":{"results":[{"Code":"1"}]}}`)
	}))
	defer server.Close()

	tokens := &flakyTokens{failures: 1}
	client, sleeps := newTestClient(server.URL, tokens)

	results, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Len(t, *sleeps, 1)
}

func TestGet_NoStoredToken(t *testing.T) {
	client, _ := newTestClient("http://unused", &staticTokens{err: auth.ErrNoToken})
	_, err := client.Get(context.Background(), 7095, "crm/Accounts", QuerySpec{})
	require.Error(t, err)
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindAuthorizationRequired, apiErr.Kind)
}

func TestGetAllPaginated_WalksSkip(t *testing.T) {
	var skips []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip := r.URL.Query().Get("$skip")
		skips = append(skips, skip)
		if skip == "" {
			fmt.Fprint(w, `{"d":{"results":[{"Code":"1"},{"Code":"2"}]}}`)
			return
		}
		fmt.Fprint(w, `{"d":{"results":[{"Code":"3"}]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	results, err := client.GetAllPaginated(context.Background(), 7095, "crm/Accounts", QuerySpec{Top: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"", "2"}, skips, "pages are fetched with increasing $skip")
}

func TestDivisions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/current/Me":
			fmt.Fprint(w, `{"d":{"results":[{"CurrentDivision":7095}]}}`)
		case "/api/v1/7095/hrm/Divisions":
			fmt.Fprint(w, `{"d":{"results":[
				{"Code":7095,"Description":"Main BV","HID":1},
				{"Code":8001,"Description":"Aux BV","HID":2}
			]}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	divisions, err := client.Divisions(context.Background())
	require.NoError(t, err)
	require.Len(t, divisions, 2)

	assert.Equal(t, "Aux BV", divisions[0].Name, "sorted by name")
	assert.False(t, divisions[0].IsCurrent)
	assert.Equal(t, 7095, divisions[1].Code)
	assert.True(t, divisions[1].IsCurrent)
}

func TestExplore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("$top"))
		fmt.Fprint(w, `{"d":{"results":[{"Code":"1300","Description":"Acme","__metadata":{"type":"x"}}]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	result, err := client.Explore(context.Background(), "crm/Accounts", 7095, 5, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, []string{"Code", "Description"}, result.AvailableFields, "metadata keys are hidden")
}

func TestExplore_DefaultsSmallAndCaps(t *testing.T) {
	var tops []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tops = append(tops, r.URL.Query().Get("$top"))
		fmt.Fprint(w, `{"d":{"results":[]}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(server.URL, &staticTokens{})
	_, err := client.Explore(context.Background(), "crm/Accounts", 7095, 0, nil, "")
	require.NoError(t, err)
	_, err = client.Explore(context.Background(), "crm/Accounts", 7095, 100, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "25"}, tops, "omitted top samples a handful of rows; large values hit the cap")
}
