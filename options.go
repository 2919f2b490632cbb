package tgbot

import (
	"log/slog"
	"time"
)

// Option configures a Client. Use With* functions to create options.
type Option interface {
	apply(*clientOptions)
}

type optionFunc func(*clientOptions)

func (f optionFunc) apply(o *clientOptions) { f(o) }

type clientOptions struct {
	logger     *slog.Logger
	proxy      string
	baseURL    string
	timeout    time.Duration
	httpClient HTTPClient
	executor   Executor
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		logger:  slog.Default(),
		baseURL: defaultBaseURL,
		timeout: defaultRequestTimeout,
	}
}

// WithLogger sets a custom slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithProxy routes all requests through a forward proxy
// (http, https or socks5 URL).
func WithProxy(proxyURL string) Option {
	return optionFunc(func(o *clientOptions) { o.proxy = proxyURL })
}

// WithBaseURL overrides the Bot API host. Useful for tests and for
// self-hosted Bot API servers.
func WithBaseURL(baseURL string) Option {
	return optionFunc(func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	})
}

// WithRequestTimeout sets the base per-request deadline. A call's
// server-side long-poll wait is added on top of this value.
func WithRequestTimeout(timeout time.Duration) Option {
	return optionFunc(func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	})
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(client HTTPClient) Option {
	return optionFunc(func(o *clientOptions) { o.httpClient = client })
}

// WithExecutor replaces the transport executor entirely. Token validation
// is skipped since the executor owns the connection configuration.
func WithExecutor(executor Executor) Option {
	return optionFunc(func(o *clientOptions) { o.executor = executor })
}
