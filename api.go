// Package tgbot is a client for the Telegram Bot API.
//
// A Client binds typed method calls (package methods) to a transport
// executor and decodes response envelopes into typed results. Incoming
// updates are ingested either by a LongPoller (pull) or by a webhook
// receiver (push) — never both for the same bot at once, since the Bot API
// supports one active delivery mode at a time.
package tgbot

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/vldm/tgbot/methods"
)

// Client is the API facade: it turns typed calls into wire requests,
// executes them and decodes the response envelope.
type Client struct {
	executor Executor
	logger   *slog.Logger
}

// New creates a Client for the given bot token.
//
// Example:
//
//	api, err := tgbot.New(os.Getenv("TGBOT_TOKEN"),
//	    tgbot.WithProxy(os.Getenv("TGBOT_PROXY")),
//	    tgbot.WithLogger(logger),
//	)
func New(token string, opts ...Option) (*Client, error) {
	o := defaultClientOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	if o.executor == nil {
		if err := ValidateBotToken(SecretToken(token)); err != nil {
			return nil, err
		}
		var exec *HTTPExecutor
		if o.proxy != "" {
			var err error
			exec, err = NewProxyExecutor(SecretToken(token), o.proxy)
			if err != nil {
				return nil, err
			}
		} else {
			exec = NewDirectExecutor(SecretToken(token))
		}
		exec.baseURL = o.baseURL
		exec.timeout = o.timeout
		if o.httpClient != nil {
			exec.client = o.httpClient
		}
		o.executor = exec
	}

	return &Client{executor: o.executor, logger: o.logger}, nil
}

// NewFromConfig creates a Client from a loaded Config.
func NewFromConfig(cfg *Config, opts ...Option) (*Client, error) {
	base := []Option{WithLogger(cfg.NewLogger())}
	if cfg.Proxy != "" {
		base = append(base, WithProxy(cfg.Proxy))
	}
	if cfg.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.BaseURL))
	}
	return New(cfg.Token, append(base, opts...)...)
}

// Logger returns the logger the client was built with.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// apiResponse is the generic response envelope of the Bot API.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Execute performs a typed call through the client and decodes the result
// into T. The pipeline is build → execute → parse envelope → decode result.
// Failures map to the call's build error (*methods.RequestError), a
// *TransportError, an *APIError (ok=false) or a *DecodeError. No retries
// happen at this layer.
//
//	user, err := tgbot.Execute[types.User](ctx, api, methods.GetMe{})
func Execute[T any](ctx context.Context, c *Client, call methods.Call) (T, error) {
	var result T

	req, err := call.BuildRequest()
	if err != nil {
		return result, err
	}

	data, err := c.executor.Execute(ctx, req)
	if err != nil {
		return result, err
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// A malformed envelope means the transport handed us garbage.
		return result, &TransportError{Err: &DecodeError{Msg: "parsing response envelope", Err: err}}
	}
	if !resp.OK {
		return result, &APIError{Code: resp.ErrorCode, Description: resp.Description}
	}
	if len(resp.Result) == 0 {
		return result, &TransportError{Err: &DecodeError{Msg: "envelope ok without result payload"}}
	}

	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return result, &DecodeError{Msg: "decoding " + req.Path + " result", Err: err}
	}
	return result, nil
}
