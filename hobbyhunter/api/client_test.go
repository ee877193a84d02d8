package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
)

type packPayload struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

// newTestClient returns a client whose sleeps are recorded instead of waited.
func newTestClient(t *testing.T, baseURL string) (*Client, *[]time.Duration) {
	t.Helper()
	client := NewClient(Options{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		BaseDelay: 100 * time.Millisecond,
	})
	delays := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return client, delays
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://example.test/"})

	assert.Equal(t, "http://example.test", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.opts.Timeout)
	assert.Equal(t, DefaultMaxAttempts, client.opts.MaxAttempts)
	assert.Equal(t, DefaultBaseDelay, client.opts.BaseDelay)
	assert.Nil(t, client.limiter)
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status    int
		want      ErrorKind
		retryable bool
	}{
		{400, KindValidation, false},
		{401, KindAuth, false},
		{403, KindPermission, false},
		{404, KindNotFound, false},
		{429, KindRateLimit, true},
		{500, KindServer, true},
		{503, KindServer, true},
		{418, KindUnknown, false},
	}

	for _, tt := range tests {
		got := KindForStatus(tt.status)
		if got != tt.want {
			t.Errorf("KindForStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
		if got.Retryable() != tt.retryable {
			t.Errorf("%s.Retryable() = %v, want %v", got, got.Retryable(), tt.retryable)
		}
	}
}

func TestDo_DecodesEnvelopeAndBareBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/packs/envelope":
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"p1","price":100},"message":"ok"}`))
		case "/packs/bare":
			_, _ = w.Write([]byte(`{"id":"p2","price":250}`))
		}
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	ctx := context.Background()

	resp, err := Get[packPayload](ctx, client, "/packs/envelope", nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, packPayload{ID: "p1", Price: 100}, resp.Data)
	assert.Equal(t, "ok", resp.Message)

	resp, err = Get[packPayload](ctx, client, "packs/bare", nil)
	require.NoError(t, err)
	assert.Equal(t, packPayload{ID: "p2", Price: 250}, resp.Data)
}

func TestDo_QueryStringAndJSONBody(t *testing.T) {
	var gotQuery url.Values
	var gotBody map[string]any
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotContentType = r.Header.Get("Content-Type")
		if r.Method != http.MethodGet {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	ctx := context.Background()

	_, err := Get[json.RawMessage](ctx, client, "/cards", url.Values{"rarity": {"rare"}, "limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, "rare", gotQuery.Get("rarity"))
	assert.Equal(t, "10", gotQuery.Get("limit"))

	_, err = Post[json.RawMessage](ctx, client, "/packs/p1/purchase", map[string]any{"quantity": 2})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, float64(2), gotBody["quantity"])
}

func TestDo_ValidationErrorIsNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"bad_quantity","message":"quantity must be positive"}}`))
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL)

	_, err := Post[json.RawMessage](context.Background(), client, "/packs/p1/purchase", map[string]int{"quantity": 0})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Empty(t, *delays)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.False(t, apiErr.Retryable)
	assert.Equal(t, "quantity must be positive", apiErr.Message)
}

func TestDo_ServerErrorRetriesWithIncreasingDelay(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL)

	_, err := Get[json.RawMessage](context.Background(), client, "/packs", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindServer))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	require.Len(t, *delays, 2)
	for i := 1; i < len(*delays); i++ {
		assert.Greater(t, (*delays)[i], (*delays)[i-1])
	}

	stats := client.Stats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.Retries)
	assert.Equal(t, int64(1), stats.FailedRequests)
	assert.Equal(t, KindServer, stats.LastError)
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"p1","price":5}}`))
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL)

	resp, err := Get[packPayload](context.Background(), client, "/packs/p1", nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", resp.Data.ID)
	assert.Len(t, *delays, 1)
}

func TestDo_RateLimitHonorsRetryAfter(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL)

	_, err := Get[json.RawMessage](context.Background(), client, "/cards/market", nil)
	require.NoError(t, err)
	require.Len(t, *delays, 1)
	assert.Equal(t, 7*time.Second, (*delays)[0])
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, _ := newTestClient(t, server.URL)

	_, err := Get[json.RawMessage](context.Background(), client, "/slow", nil,
		WithTimeout(50*time.Millisecond), WithoutRetry())
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client, delays := newTestClient(t, baseURL)

	_, err := Get[json.RawMessage](context.Background(), client, "/packs", nil)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Len(t, *delays, 2)
}

func TestInterceptors(t *testing.T) {
	var gotAuth string
	var order []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/private" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	ctx := context.Background()
	store := localstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, localstore.TokenKey, "token-123"))
	require.NoError(t, store.Set(ctx, localstore.RefreshTokenKey, "refresh-456"))

	client, delays := newTestClient(t, server.URL)
	client.OnRequest(func(r *http.Request) error {
		order = append(order, "first")
		return nil
	})
	client.OnRequest(BearerToken(store))
	client.OnRequest(func(r *http.Request) error {
		order = append(order, "last")
		return nil
	})

	var responses int
	client.OnResponse(func(*http.Response, []byte) error {
		responses++
		return nil
	})

	var errorsSeen []ErrorKind
	client.OnError(func(e *Error) { errorsSeen = append(errorsSeen, e.Kind) })
	client.OnError(ClearCredentialsOnAuthError(store))

	_, err := Get[json.RawMessage](ctx, client, "/public", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, []string{"first", "last"}, order)
	assert.Equal(t, 1, responses)

	_, err = Get[json.RawMessage](ctx, client, "/private", nil)
	require.Error(t, err)
	assert.Equal(t, KindAuth, KindOf(err))
	assert.Empty(t, *delays)
	assert.Equal(t, []ErrorKind{KindAuth}, errorsSeen)
	assert.Equal(t, 1, responses)

	_, ok, _ := store.Get(ctx, localstore.TokenKey)
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, localstore.RefreshTokenKey)
	assert.False(t, ok)
}

func TestDo_DecodeFailuresReachErrorInterceptors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"failure envelope", `{"success":false,"error":"pack sold out"}`},
		{"unparsable body", `{"id": 7`},
		{"wrong data shape", `{"success":true,"data":"starter"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := newTestClient(t, server.URL)
			var seen []ErrorKind
			client.OnError(func(e *Error) { seen = append(seen, e.Kind) })

			_, err := Get[packPayload](context.Background(), client, "/packs/starter", nil)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindUnknown))
			assert.Equal(t, []ErrorKind{KindUnknown}, seen)

			stats := client.Stats()
			assert.Equal(t, int64(1), stats.FailedRequests)
			assert.Equal(t, KindUnknown, stats.LastError)
		})
	}
}

func TestFailureEnvelope(t *testing.T) {
	resp := Failure[packPayload](newError(KindNotFound, 404, "pack not found", nil))

	assert.False(t, resp.Success)
	assert.Equal(t, KindNotFound, resp.Error)
	assert.Contains(t, resp.Message, "pack not found")
	assert.False(t, resp.Timestamp.IsZero())
}
