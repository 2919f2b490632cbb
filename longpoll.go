package tgbot

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vldm/tgbot/methods"
	"github.com/vldm/tgbot/types"
)

// UpdateHandler processes incoming updates. The long poller invokes it from
// a single dispatcher goroutine in ascending update-id order; the webhook
// receiver may invoke it concurrently, one call per inbound request.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update types.Update) error
}

// UpdateHandlerFunc adapts a function to the UpdateHandler interface.
type UpdateHandlerFunc func(ctx context.Context, update types.Update) error

// HandleUpdate implements UpdateHandler.
func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, update types.Update) error {
	return f(ctx, update)
}

const defaultMaxConsecutiveErrors = 10

// Default retry configuration for exponential backoff.
const (
	defaultRetryInitialDelay  = 1 * time.Second
	defaultRetryMaxDelay      = 60 * time.Second
	defaultRetryBackoffFactor = 2.0
)

const (
	defaultPollTimeout = 30  // seconds, server-side wait
	defaultPollLimit   = 100 // updates per batch
	defaultQueueSize   = 100 // dispatch queue capacity
)

// LongPoller repeatedly fetches updates through the API facade with an
// advancing offset and hands them to an UpdateHandler. Exactly one fetch is
// in flight at any time; the handler runs on its own dispatcher goroutine so
// its latency never stalls the polling sequence.
type LongPoller struct {
	api     *Client
	handler UpdateHandler
	logger  *slog.Logger

	// Polling configuration
	timeout        int
	limit          int
	maxErrors      int // max consecutive fetch errors before stopping (0 = unlimited)
	allowedUpdates []types.AllowedUpdate
	queueSize      int

	// Retry configuration with exponential backoff
	retryInitialDelay  time.Duration
	retryMaxDelay      time.Duration
	retryBackoffFactor float64

	// Circuit breaker around the fetch call
	breaker *gobreaker.CircuitBreaker[[]json.RawMessage]

	// State management
	offset            atomic.Int64
	running           atomic.Bool
	consecutiveErrors atomic.Int32
	stopErr           atomic.Value // error that stopped the loop, if any
	stopCh            chan struct{}
	closeOnce         sync.Once
	wg                sync.WaitGroup
}

// LongPollOption configures a LongPoller.
type LongPollOption func(*LongPoller)

// WithPolling sets the server-side wait (seconds) and the batch limit.
func WithPolling(timeout, limit int) LongPollOption {
	return func(p *LongPoller) {
		if timeout >= 0 {
			p.timeout = timeout
		}
		if limit > 0 {
			p.limit = limit
		}
	}
}

// WithStartOffset sets the initial cursor instead of the default 0.
func WithStartOffset(offset int64) LongPollOption {
	return func(p *LongPoller) { p.offset.Store(offset) }
}

// WithAllowedUpdates filters the kinds of updates to receive.
func WithAllowedUpdates(kinds []types.AllowedUpdate) LongPollOption {
	return func(p *LongPoller) { p.allowedUpdates = kinds }
}

// WithMaxErrors sets the maximum consecutive fetch errors before the poller
// stops. Set to 0 for unlimited retries.
func WithMaxErrors(max int) LongPollOption {
	return func(p *LongPoller) { p.maxErrors = max }
}

// WithRetryConfig sets exponential backoff parameters for fetch retries.
func WithRetryConfig(initialDelay, maxDelay time.Duration, backoffFactor float64) LongPollOption {
	return func(p *LongPoller) {
		if initialDelay > 0 {
			p.retryInitialDelay = initialDelay
		}
		if maxDelay > 0 {
			p.retryMaxDelay = maxDelay
		}
		if backoffFactor > 1.0 {
			p.retryBackoffFactor = backoffFactor
		}
	}
}

// WithCircuitBreaker sets a custom circuit breaker for the fetch call.
func WithCircuitBreaker(breaker *gobreaker.CircuitBreaker[[]json.RawMessage]) LongPollOption {
	return func(p *LongPoller) { p.breaker = breaker }
}

// WithQueueSize sets the dispatch queue capacity. A full queue applies
// backpressure to the polling loop rather than dropping updates.
func WithQueueSize(size int) LongPollOption {
	return func(p *LongPoller) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// NewLongPoller creates a long poller bound to the given client and handler.
func NewLongPoller(api *Client, handler UpdateHandler, opts ...LongPollOption) *LongPoller {
	p := &LongPoller{
		api:                api,
		handler:            handler,
		logger:             api.Logger(),
		timeout:            defaultPollTimeout,
		limit:              defaultPollLimit,
		maxErrors:          defaultMaxConsecutiveErrors,
		queueSize:          defaultQueueSize,
		retryInitialDelay:  defaultRetryInitialDelay,
		retryMaxDelay:      defaultRetryMaxDelay,
		retryBackoffFactor: defaultRetryBackoffFactor,
		stopCh:             make(chan struct{}),
	}

	p.breaker = gobreaker.NewCircuitBreaker[[]json.RawMessage](gobreaker.Settings{
		Name: "tgbot-longpoll",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			p.logger.Info("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling for updates. It returns immediately; polling and
// dispatch run on their own goroutines until Stop is called or the context
// is cancelled. Returns ErrPollerAlreadyRunning on a second call.
func (p *LongPoller) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrPollerAlreadyRunning
	}

	queue := make(chan types.Update, p.queueSize)

	p.wg.Add(2)
	go p.dispatchLoop(ctx, queue)
	go p.pollLoop(ctx, queue)

	p.logger.Info("long polling started",
		"timeout", p.timeout,
		"limit", p.limit,
		"offset", p.offset.Load(),
		"max_errors", p.maxErrors,
	)
	return nil
}

// Stop gracefully stops the poller. The stop signal is observed between
// cycles, never mid-flight: the current fetch finishes, no new fetch is
// issued, and queued updates are handed to the handler before Stop returns.
// Safe to call multiple times.
func (p *LongPoller) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.closeOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
	p.logger.Info("long polling stopped")
}

// pollLoop is the polling sequence: exactly one fetch outstanding at a time,
// cursor mutation only on this goroutine.
func (p *LongPoller) pollLoop(ctx context.Context, queue chan<- types.Update) {
	defer p.wg.Done()
	defer p.running.Store(false)
	defer close(queue)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("polling stopped due to context cancellation")
			return
		case <-p.stopCh:
			p.logger.Info("polling stopped due to stop signal")
			return
		default:
		}

		batch, err := p.fetchBatch(ctx)
		if err != nil {
			errCount := p.consecutiveErrors.Add(1)
			backoff := p.calculateBackoff(errCount)
			p.logger.Error("failed to fetch updates",
				"error", err,
				"consecutive_errors", errCount,
				"retry_delay", backoff,
			)

			if p.maxErrors > 0 && int(errCount) >= p.maxErrors {
				p.stopErr.Store(ErrMaxErrorsExceeded)
				p.logger.Error("max consecutive errors exceeded, stopping polling",
					"max_errors", p.maxErrors,
				)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-time.After(backoff):
			}
			continue
		}

		p.consecutiveErrors.Store(0)
		if !p.processBatch(ctx, batch, queue) {
			return
		}
	}
}

// fetchBatch issues one getUpdates call through the facade, guarded by the
// circuit breaker. Items come back raw so a single malformed update cannot
// poison the whole batch.
func (p *LongPoller) fetchBatch(ctx context.Context) ([]json.RawMessage, error) {
	call := methods.GetUpdates{
		Offset:         p.offset.Load(),
		Limit:          p.limit,
		Timeout:        p.timeout,
		AllowedUpdates: p.allowedUpdates,
	}
	return p.breaker.Execute(func() ([]json.RawMessage, error) {
		return Execute[[]json.RawMessage](ctx, p.api, call)
	})
}

// processBatch decodes and queues a batch in ascending id order, then
// advances the cursor to one past the highest id seen. Malformed items are
// skipped and logged; their id is still probed so the cursor moves past
// them instead of refetching the same item forever. Returns false when the
// loop should exit without advancing the cursor.
func (p *LongPoller) processBatch(ctx context.Context, batch []json.RawMessage, queue chan<- types.Update) bool {
	next := p.offset.Load()
	for _, item := range batch {
		var update types.Update
		if err := json.Unmarshal(item, &update); err != nil {
			p.logger.Warn("skipping malformed update",
				"error", &DecodeError{Msg: "decoding update", Err: err},
			)
			if id, ok := probeUpdateID(item); ok && id+1 > next {
				next = id + 1
			}
			continue
		}
		if update.ID+1 > next {
			next = update.ID + 1
		}

		select {
		case queue <- update:
			p.logger.Debug("update queued", "update_id", update.ID, "type", update.Type())
		case <-ctx.Done():
			return false
		case <-p.stopCh:
			return false
		}
	}
	p.offset.Store(next)
	return true
}

// probeUpdateID extracts just the update_id from a raw item.
func probeUpdateID(item json.RawMessage) (int64, bool) {
	var probe struct {
		UpdateID *int64 `json:"update_id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil || probe.UpdateID == nil {
		return 0, false
	}
	return *probe.UpdateID, true
}

// dispatchLoop hands queued updates to the handler one at a time, isolating
// the polling sequence from handler latency and failures.
func (p *LongPoller) dispatchLoop(ctx context.Context, queue <-chan types.Update) {
	defer p.wg.Done()
	for update := range queue {
		p.dispatch(ctx, update)
	}
}

func (p *LongPoller) dispatch(ctx context.Context, update types.Update) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("update handler panicked", "update_id", update.ID, "panic", r)
		}
	}()
	if err := p.handler.HandleUpdate(ctx, update); err != nil {
		p.logger.Error("update handler failed", "update_id", update.ID, "error", err)
	}
}

// calculateBackoff computes the next retry delay using exponential backoff
// with jitter (0-25% of the base delay) to avoid thundering herd.
func (p *LongPoller) calculateBackoff(attempt int32) time.Duration {
	baseDelay := float64(p.retryInitialDelay) * math.Pow(p.retryBackoffFactor, float64(attempt-1))
	if baseDelay > float64(p.retryMaxDelay) {
		baseDelay = float64(p.retryMaxDelay)
	}

	jitterRange := int64(baseDelay * 0.25)
	if jitterRange > 0 {
		jitterBig, err := rand.Int(rand.Reader, big.NewInt(jitterRange))
		if err == nil {
			baseDelay += float64(jitterBig.Int64())
		}
		// If crypto/rand fails, proceed without jitter.
	}
	return time.Duration(baseDelay)
}

// Running returns true while the poller is active.
func (p *LongPoller) Running() bool {
	return p.running.Load()
}

// IsHealthy returns health status for liveness probes: running and below
// the consecutive-error cutoff.
func (p *LongPoller) IsHealthy() bool {
	if p.maxErrors == 0 {
		return p.running.Load()
	}
	return p.running.Load() && int(p.consecutiveErrors.Load()) < p.maxErrors
}

// Err reports why the poller stopped on its own, e.g. ErrMaxErrorsExceeded.
// It returns nil while the poller runs or after a clean Stop.
func (p *LongPoller) Err() error {
	if err, ok := p.stopErr.Load().(error); ok {
		return err
	}
	return nil
}

// ConsecutiveErrors returns the current consecutive fetch error count.
func (p *LongPoller) ConsecutiveErrors() int32 {
	return p.consecutiveErrors.Load()
}

// Offset returns the current cursor: the offset the next fetch will use.
func (p *LongPoller) Offset() int64 {
	return p.offset.Load()
}
