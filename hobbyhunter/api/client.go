package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
)

type (
	RequestInterceptor  func(*http.Request) error
	ResponseInterceptor func(*http.Response, []byte) error
	ErrorInterceptor    func(*Error)
)

// Client is the request pipeline shared by every repository.
type Client struct {
	opts       Options
	httpClient *http.Client
	limiter    *rate.Limiter

	interceptorsMu       sync.RWMutex
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	errorInterceptors    []ErrorInterceptor

	sleep  func(context.Context, time.Duration) error
	jitter func(time.Duration) time.Duration

	stats   ClientStats
	statsMu sync.RWMutex
}

type ClientStats struct {
	TotalRequests  int64
	Retries        int64
	FailedRequests int64
	LastLatency    time.Duration
	LastError      ErrorKind
}

func NewClient(opts Options) *Client {
	defaults := DefaultOptions(opts.BaseURL)
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaults.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaults.MaxDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	return &Client{
		opts:       opts,
		httpClient: httpClient,
		limiter:    limiter,
		sleep:      sleepContext,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

func (c *Client) OnRequest(fn RequestInterceptor) {
	c.interceptorsMu.Lock()
	defer c.interceptorsMu.Unlock()
	c.requestInterceptors = append(c.requestInterceptors, fn)
}

func (c *Client) OnResponse(fn ResponseInterceptor) {
	c.interceptorsMu.Lock()
	defer c.interceptorsMu.Unlock()
	c.responseInterceptors = append(c.responseInterceptors, fn)
}

func (c *Client) OnError(fn ErrorInterceptor) {
	c.interceptorsMu.Lock()
	defer c.interceptorsMu.Unlock()
	c.errorInterceptors = append(c.errorInterceptors, fn)
}

// Do sends one logical request, retrying retryable failures, and decodes the
// body into T.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, params url.Values, opts ...RequestOption) (*Response[T], error) {
	raw, status, err := c.Execute(ctx, method, path, body, params, opts...)
	if err != nil {
		return nil, err
	}
	resp, apiErr := decodeResponse[T](raw, status)
	if apiErr != nil {
		c.fail(apiErr)
		return nil, apiErr
	}
	return resp, nil
}

func Get[T any](ctx context.Context, c *Client, path string, params url.Values, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodGet, path, nil, params, opts...)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPost, path, body, nil, opts...)
}

func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPut, path, body, nil, opts...)
}

func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodPatch, path, body, nil, opts...)
}

func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return Do[T](ctx, c, http.MethodDelete, path, nil, nil, opts...)
}

// Execute runs the retry loop and returns the raw body of the first
// successful attempt.
func (c *Client) Execute(ctx context.Context, method, path string, body any, params url.Values, opts ...RequestOption) ([]byte, int, error) {
	cfg := requestConfig{
		timeout:     c.opts.Timeout,
		maxAttempts: c.opts.MaxAttempts,
		headers:     make(http.Header),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = 1
	}

	var payload []byte
	if body != nil && method != http.MethodGet {
		encoded, err := json.Marshal(body)
		if err != nil {
			apiErr := newError(KindValidation, 0, "failed to encode request body", err)
			c.fail(apiErr)
			return nil, 0, apiErr
		}
		payload = encoded
	}

	target := c.opts.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var lastErr *Error
	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		start := time.Now()
		data, status, apiErr := c.attempt(ctx, method, target, payload, cfg)
		latency := time.Since(start)
		logger.LogRequest(method, path, status, attempt, latency, errOrNil(apiErr))

		c.updateStats(func(s *ClientStats) {
			s.TotalRequests++
			s.LastLatency = latency
		})

		if apiErr == nil {
			return data, status, nil
		}

		lastErr = apiErr
		if !apiErr.Retryable || attempt == cfg.maxAttempts || ctx.Err() != nil {
			break
		}

		c.updateStats(func(s *ClientStats) { s.Retries++ })
		if err := c.sleep(ctx, c.backoff(attempt, apiErr)); err != nil {
			break
		}
	}

	c.fail(lastErr)
	return nil, lastErr.Status, lastErr
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, cfg requestConfig) ([]byte, int, *Error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, newError(KindRateLimit, 0, "rate limiter error", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return nil, 0, newError(KindValidation, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range cfg.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	c.interceptorsMu.RLock()
	requestInterceptors := append([]RequestInterceptor(nil), c.requestInterceptors...)
	responseInterceptors := append([]ResponseInterceptor(nil), c.responseInterceptors...)
	c.interceptorsMu.RUnlock()

	for _, intercept := range requestInterceptors {
		if err := intercept(req); err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				return nil, 0, apiErr
			}
			return nil, 0, newError(KindUnknown, 0, "request interceptor failed", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, 0, newError(KindTimeout, 0, fmt.Sprintf("request timed out after %s", cfg.timeout), err)
		}
		return nil, 0, newError(KindNetwork, 0, "failed to execute request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, resp.StatusCode, newError(KindTimeout, resp.StatusCode, "timed out reading response body", err)
		}
		return nil, resp.StatusCode, newError(KindNetwork, resp.StatusCode, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(KindForStatus(resp.StatusCode), resp.StatusCode, parseErrorBody(data), nil)
		if apiErr.Kind == KindRateLimit {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, resp.StatusCode, apiErr
	}

	for _, intercept := range responseInterceptors {
		if err := intercept(resp, data); err != nil {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				return nil, resp.StatusCode, apiErr
			}
			return nil, resp.StatusCode, newError(KindUnknown, resp.StatusCode, "response interceptor failed", err)
		}
	}

	return data, resp.StatusCode, nil
}

// backoff returns the wait before the attempt following attempt: an
// exponential step from BaseDelay plus jitter below BaseDelay, so consecutive
// waits strictly increase until MaxDelay is reached.
func (c *Client) backoff(attempt int, apiErr *Error) time.Duration {
	delay := c.opts.BaseDelay << (attempt - 1)
	if delay <= 0 || delay > c.opts.MaxDelay {
		delay = c.opts.MaxDelay
	}
	delay += c.jitter(c.opts.BaseDelay)
	if apiErr.RetryAfter > delay {
		delay = apiErr.RetryAfter
	}
	return delay
}

func (c *Client) fail(apiErr *Error) {
	c.updateStats(func(s *ClientStats) {
		s.FailedRequests++
		s.LastError = apiErr.Kind
	})

	c.interceptorsMu.RLock()
	errorInterceptors := append([]ErrorInterceptor(nil), c.errorInterceptors...)
	c.interceptorsMu.RUnlock()

	for _, intercept := range errorInterceptors {
		intercept(apiErr)
	}
}

func (c *Client) updateStats(fn func(*ClientStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(&c.stats)
}

func (c *Client) Stats() ClientStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func errOrNil(apiErr *Error) error {
	if apiErr == nil {
		return nil
	}
	return apiErr
}
