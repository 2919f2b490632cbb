package tgbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/vldm/tgbot/methods"
)

const defaultBaseURL = "https://api.telegram.org"

// defaultRequestTimeout is the base per-request deadline; the server-side
// long-poll wait carried by a request is added on top of it, so the local
// deadline is always strictly greater than the server-side one.
const defaultRequestTimeout = 30 * time.Second

// Executor performs a protocol-level request against the network. It is
// safe for concurrent use: implementations hold only immutable connection
// configuration.
type Executor interface {
	Execute(ctx context.Context, req *methods.Request) ([]byte, error)
}

// HTTPClient is an interface for HTTP operations to enable testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)

// HTTPExecutor executes requests over HTTP, either directly against the Bot
// API host or through a forward proxy chosen at construction time.
type HTTPExecutor struct {
	baseURL string
	token   SecretToken
	client  HTTPClient
	timeout time.Duration
}

var _ Executor = (*HTTPExecutor)(nil)

// NewDirectExecutor creates an executor that connects straight to the API host.
func NewDirectExecutor(token SecretToken) *HTTPExecutor {
	return newHTTPExecutor(token, &http.Client{Transport: newTransport(nil)})
}

// NewProxyExecutor creates an executor that routes every request through the
// given forward proxy (http, https or socks5 URL).
func NewProxyExecutor(token SecretToken, proxyURL string) (*HTTPExecutor, error) {
	u, err := url.Parse(proxyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyURL, proxyURL)
	}
	return newHTTPExecutor(token, &http.Client{Transport: newTransport(u)}), nil
}

func newHTTPExecutor(token SecretToken, client HTTPClient) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: defaultBaseURL,
		token:   token,
		client:  client,
		timeout: defaultRequestTimeout,
	}
}

func newTransport(proxy *url.URL) *http.Transport {
	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	if proxy != nil {
		t.Proxy = http.ProxyURL(proxy)
	}
	return t
}

// Execute implements Executor. Connectivity failures, timeouts and non-2xx
// statuses are all reported as *TransportError; the response body of a
// non-2xx answer is preserved for diagnostics.
func (e *HTTPExecutor) Execute(ctx context.Context, req *methods.Request) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", e.baseURL, e.token.Value(), req.Path)

	ctx, cancel := context.WithTimeout(ctx, e.timeout+req.Timeout)
	defer cancel()

	var body io.Reader
	var contentType string
	if req.Body != nil {
		ct, r, err := req.Body.Encode()
		if err != nil {
			return nil, &methods.RequestError{Path: req.Path, Err: err}
		}
		contentType, body = ct, r
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, &TransportError{Err: redactErr(err)}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: redactErr(err)}
	}
	defer func() {
		// Always drain remaining body for connection reuse.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: redactErr(err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

// redactErr strips *url.Error wrapping, whose message embeds the request URL
// and with it the bot token.
func redactErr(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}
