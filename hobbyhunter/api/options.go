package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultUserAgent   = "HobbyHunter-Storefront/1.0"
)

// Options configures the API client.
type Options struct {
	BaseURL string

	// Timeout bounds every single attempt (default: 10 seconds)
	Timeout time.Duration

	// MaxAttempts is the attempt ceiling including the first try (default: 3)
	MaxAttempts int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	// RateLimit throttles outgoing requests; zero disables throttling
	RateLimit rate.Limit
	Burst     int

	HTTPClient *http.Client
	UserAgent  string
}

func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:     baseURL,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		UserAgent:   DefaultUserAgent,
	}
}

type requestConfig struct {
	timeout     time.Duration
	maxAttempts int
	headers     http.Header
}

type RequestOption func(*requestConfig)

func WithTimeout(timeout time.Duration) RequestOption {
	return func(c *requestConfig) { c.timeout = timeout }
}

func WithMaxAttempts(attempts int) RequestOption {
	return func(c *requestConfig) { c.maxAttempts = attempts }
}

func WithoutRetry() RequestOption {
	return WithMaxAttempts(1)
}

func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) { c.headers.Set(key, value) }
}
