package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
)

// Fetcher produces a fresh snapshot from the remote collaborator API.
//
// Implementations compose one bounded network fetch with a pure projection
// and wrap failures with ErrAuth, ErrTransient, or ErrProjection. Retry
// policy does not belong here; the coordinator owns it.
type Fetcher interface {
	Fetch(ctx context.Context) (entity.Snapshot, error)
}

// Logger defines the logging interface used by the Coordinator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is the coordinator lifecycle state.
type State string

// Coordinator states. FailedAuth is terminal until external
// re-authentication; Closed is terminal.
const (
	StateUninitialized State = "uninitialized"
	StateRefreshing    State = "refreshing"
	StateReady         State = "ready"
	StateFailedAuth    State = "failed_auth"
	StateClosed        State = "closed"
)

// Default timings, mirroring the reference polling behaviour.
const (
	DefaultInterval     = 20 * time.Second
	DefaultFetchTimeout = 10 * time.Second
)

// refreshCall represents one refresh cycle shared by every caller that
// requested it. Waiters block on done and read err afterwards.
type refreshCall struct {
	done chan struct{}
	err  error
}

// subscriber pairs a registration id with its callback so notifications
// run in registration order and entries can be removed by id.
type subscriber struct {
	id int
	fn func(entity.Snapshot)
}

// Coordinator owns the refresh cycle for one integration instance: it
// polls the Fetcher on a fixed interval, serializes concurrent refresh
// requests, caches the last successful snapshot, classifies failures,
// and notifies subscribers after every successful refresh.
//
// At most one fetch is ever outstanding per coordinator. A refresh
// requested while one is in flight joins a single pending follow-up
// refresh shared by all such callers; it runs once the in-flight cycle
// completes.
//
// All methods are safe for concurrent use. Snapshot never blocks.
type Coordinator struct {
	name         string
	fetcher      Fetcher
	interval     time.Duration
	fetchTimeout time.Duration
	logger       Logger
	onReauth     func(error)

	mu          sync.RWMutex
	state       State
	snapshot    entity.Snapshot
	ready       bool // a refresh has succeeded at least once
	lastRefresh time.Time
	lastErr     error
	inflight    *refreshCall
	pending     *refreshCall
	subscribers []subscriber
	nextSubID   int
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithInterval sets the poll interval. Defaults to 20s.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithFetchTimeout bounds each Fetcher call. Defaults to 10s.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReauthSignal sets a callback fired once when the coordinator enters
// FailedAuth. The host uses this to surface a re-authentication prompt.
// The callback runs outside the coordinator lock.
func WithReauthSignal(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onReauth = fn
	}
}

// New creates a coordinator for one integration instance.
// It does not fetch anything until Start or Refresh is called.
func New(name string, fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:         name,
		fetcher:      fetcher,
		interval:     DefaultInterval,
		fetchTimeout: DefaultFetchTimeout,
		logger:       noopLogger{},
		state:        StateUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the integration instance name this coordinator polls for.
func (c *Coordinator) Name() string {
	return c.name
}

// Start performs one mandatory refresh synchronously, then begins
// periodic polling. The first refresh's failure is returned directly and
// the timer is not armed, so the caller can abort setup rather than
// publish a broken empty snapshot.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return ErrClosed
	}
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(runCtx, done)
	c.logger.Info("coordinator started", "integration", c.name, "interval", c.interval)
	return nil
}

// run is the timer loop. It exits on context cancellation or when the
// coordinator enters FailedAuth (auth failures stop the schedule; there
// is no automatic retry without new credentials).
func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.Refresh(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrAuth):
				c.logger.Error("authentication failed, polling stopped",
					"integration", c.name, "error", err)
				return
			case errors.Is(err, ErrClosed), errors.Is(err, context.Canceled):
				return
			default:
				// Transient: keep the fixed schedule, no backoff.
				c.logger.Warn("refresh failed, will retry on schedule",
					"integration", c.name, "error", err)
			}
		}
	}
}

// Refresh triggers a refresh immediately, independent of the timer.
//
// If a refresh is already in flight, the request joins a single pending
// follow-up cycle shared with every other caller that asked during the
// same window: two concurrent triggers cost one extra fetch, never two.
// The returned error is the failure of the cycle that served this caller.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateFailedAuth {
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	if c.inflight != nil {
		if c.pending == nil {
			c.pending = &refreshCall{done: make(chan struct{})}
		}
		call := c.pending
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	// This goroutine is now the runner: it executes its own cycle and any
	// pending cycle that accumulated while it ran.
	var myErr error
	first := true
	for {
		err := c.doRefresh(ctx)
		if first {
			myErr = err
			first = false
		}

		c.mu.Lock()
		next := c.pending
		c.pending = nil
		stop := next == nil || c.state == StateFailedAuth || c.closed || ctx.Err() != nil
		if stop {
			c.inflight = nil
		} else {
			c.inflight = next
		}
		c.mu.Unlock()

		call.err = err
		close(call.done)

		if stop {
			if next != nil {
				// The pending cycle is abandoned; its waiters share the
				// terminal outcome of the cycle that ended the run.
				next.err = err
				close(next.done)
			}
			return myErr
		}
		call = next
	}
}

// doRefresh runs one fetch-classify-publish cycle.
func (c *Coordinator) doRefresh(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateRefreshing
	c.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	snap, err := c.fetcher.Fetch(fctx)
	cancel()

	c.mu.Lock()
	switch {
	case err == nil:
		c.snapshot = snap
		c.state = StateReady
		c.ready = true
		c.lastRefresh = time.Now()
		c.lastErr = nil
		subs := make([]subscriber, len(c.subscribers))
		copy(subs, c.subscribers)
		c.mu.Unlock()

		c.logger.Debug("refresh succeeded", "integration", c.name, "records", len(snap))
		for _, s := range subs {
			s.fn(snap)
		}
		return nil

	case errors.Is(err, ErrAuth):
		// Terminal: stop retrying, keep stale data visible.
		c.state = StateFailedAuth
		c.lastErr = err
		onReauth := c.onReauth
		c.mu.Unlock()

		if onReauth != nil {
			onReauth(err)
		}
		return err

	default:
		// Transient failure or a projection defect: last published
		// snapshot is retained unchanged, schedule continues.
		if c.ready {
			c.state = StateReady
		} else {
			c.state = StateUninitialized
		}
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
}

// Snapshot returns the last successfully published snapshot. It never
// blocks and never observes a snapshot under construction; before the
// first successful refresh it returns an empty snapshot.
func (c *Coordinator) Snapshot() entity.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return entity.Snapshot{}
	}
	return c.snapshot
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastRefresh returns the time of the last successful refresh, zero
// before the first success.
func (c *Coordinator) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// LastError returns the most recent refresh failure, nil after a
// successful refresh.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Subscribe registers a callback notified once per successful refresh
// (not per timer tick: a refresh that fails does not notify) with the
// published snapshot. Callbacks run in registration order, outside the
// coordinator lock, on the refreshing goroutine; they must not call
// Refresh synchronously. Returns a registration id for Unsubscribe.
func (c *Coordinator) Subscribe(fn func(entity.Snapshot)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1
	}
	c.nextSubID++
	c.subscribers = append(c.subscribers, subscriber{id: c.nextSubID, fn: fn})
	return c.nextSubID
}

// Unsubscribe removes a previously registered callback.
func (c *Coordinator) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subscribers {
		if s.id == id {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			return
		}
	}
}

// Close tears down the coordinator: the timer stops, any in-flight fetch
// is cancelled best-effort via its context, and subscribers are dropped.
// The last published snapshot remains readable.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = StateClosed
	c.subscribers = nil
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.logger.Info("coordinator closed", "integration", c.name)
}
