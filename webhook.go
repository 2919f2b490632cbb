package tgbot

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/vldm/tgbot/types"
)

// secretTokenHeader carries the webhook secret on every Telegram request.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const (
	defaultMaxBodySize       = 1 << 20 // 1 MiB
	defaultRateLimitRequests = 10
	defaultRateLimitBurst    = 20
)

// WebhookHandler is the push-model update receiver: an http.Handler that
// decodes each inbound POST body as an Update and hands it to the
// UpdateHandler. The response is a success status once the body has been
// read and handed off, regardless of handler outcome — handler failures are
// logged, never surfaced to Telegram and never allowed to kill the listener.
type WebhookHandler struct {
	handler UpdateHandler
	logger  *slog.Logger

	secret      string
	limiter     *rate.Limiter
	maxBodySize int64
}

var _ http.Handler = (*WebhookHandler)(nil)

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithWebhookSecret requires the X-Telegram-Bot-Api-Secret-Token header to
// match on every request.
func WithWebhookSecret(secret string) WebhookOption {
	return func(wh *WebhookHandler) { wh.secret = secret }
}

// WithWebhookRateLimit bounds inbound request throughput.
func WithWebhookRateLimit(requestsPerSecond float64, burst int) WebhookOption {
	return func(wh *WebhookHandler) {
		wh.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithWebhookMaxBodySize caps the accepted request body size in bytes.
func WithWebhookMaxBodySize(size int64) WebhookOption {
	return func(wh *WebhookHandler) {
		if size > 0 {
			wh.maxBodySize = size
		}
	}
}

// NewWebhookHandler creates a webhook receiver for the given update handler.
// The handler must be safe for concurrent invocation: requests are served
// concurrently and no serialization is added here.
func NewWebhookHandler(handler UpdateHandler, logger *slog.Logger, opts ...WebhookOption) *WebhookHandler {
	wh := &WebhookHandler{
		handler:     handler,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimitRequests), defaultRateLimitBurst),
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(wh)
	}
	return wh
}

// ServeHTTP implements http.Handler.
func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !wh.limiter.Allow() {
		wh.logger.Warn("webhook rate limit exceeded")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	if wh.secret != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get(secretTokenHeader)), []byte(wh.secret)) != 1 {
		wh.logger.Warn("webhook secret mismatch")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, wh.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		wh.logger.Error("failed to read webhook body", "error", err)
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}

	var update types.Update
	if err := json.Unmarshal(body, &update); err != nil {
		// Still acknowledged: Telegram would otherwise redeliver a payload
		// that will never decode.
		wh.logger.Warn("malformed webhook update",
			"error", &DecodeError{Msg: "decoding update", Err: err},
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	wh.dispatch(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

func (wh *WebhookHandler) dispatch(ctx context.Context, update types.Update) {
	defer func() {
		if r := recover(); r != nil {
			wh.logger.Error("update handler panicked", "update_id", update.ID, "panic", r)
		}
	}()
	if err := wh.handler.HandleUpdate(ctx, update); err != nil {
		wh.logger.Error("update handler failed", "update_id", update.ID, "error", err)
	}
	wh.logger.Debug("update dispatched", "update_id", update.ID, "type", update.Type())
}

// WebhookConfig holds the listener settings for StartWebhookServer.
type WebhookConfig struct {
	// Addr is the listen address, e.g. ":8443".
	Addr string `koanf:"addr"`
	// Path is the single route updates are accepted on.
	Path string `koanf:"path"`
	// Secret is the expected X-Telegram-Bot-Api-Secret-Token value.
	Secret string `koanf:"secret"`
	// TLSCertPath and TLSKeyPath enable TLS when both are set.
	TLSCertPath string `koanf:"tls_cert"`
	TLSKeyPath  string `koanf:"tls_key"`

	MaxBodySize       int64         `koanf:"max_body_size"`
	RateLimitRequests float64       `koanf:"rate_limit"`
	RateLimitBurst    int           `koanf:"rate_burst"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// newWebhookRouter routes POSTs on the update path to the handler; every
// other path answers 404 and every other method 405.
func newWebhookRouter(path string, handler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Handle(path, handler).Methods(http.MethodPost)
	return router
}

// StartWebhookServer runs an HTTP(S) server with the webhook handler bound
// at the configured path. Any other path answers 404 and any other method
// 405, without invoking the handler. The call blocks until the context is
// cancelled, then shuts down gracefully: the listener stops accepting new
// connections while in-flight handler invocations finish.
func StartWebhookServer(ctx context.Context, cfg WebhookConfig, handler http.Handler, logger *slog.Logger) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newWebhookRouter(cfg.Path, handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server starting", "addr", cfg.Addr, "path", cfg.Path)
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			errCh <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("webhook server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("webhook server stopped gracefully")
	return nil
}
