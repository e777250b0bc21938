package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
)

// Dependencies holds the optional collaborators of an Engine. Leave fields
// zero to skip the related middleware.
type Dependencies struct {
	// Middlewares are appended after the default middleware chain.
	Middlewares []Middleware
	// DisableDefaultMiddlewares skips the recoverer and logging middlewares.
	DisableDefaultMiddlewares bool
	// Hooks observe every dispatch when any hook is set.
	Hooks DispatchHooks
	// Metrics enables Prometheus dispatch metrics on the given registerer.
	Metrics prometheus.Registerer
	// EnableTracing opens an OpenTelemetry span per dispatch.
	EnableTracing bool
}

// Engine owns the dispatch wrappers for one broker client. Routers register
// callbacks before StartAll; afterwards the registration set is immutable
// and shared read-only by concurrent dispatches.
type Engine struct {
	client      brokerpkg.Client
	logger      loggingpkg.ServiceLogger
	middlewares []Middleware

	mu       sync.Mutex
	routers  []*Router
	regs     []*registration
	started  bool
	drained  bool
	inflight sync.WaitGroup
	cancel   context.CancelFunc
}

// New constructs an Engine using the supplied broker client. Register
// routers on the returned Engine before calling StartAll.
func New(client brokerpkg.Client, logger loggingpkg.ServiceLogger, deps Dependencies) (*Engine, error) {
	if client == nil {
		return nil, errspkg.ErrClientRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	e := &Engine{client: client, logger: logger}

	if !deps.DisableDefaultMiddlewares {
		e.middlewares = append(e.middlewares, RecovererMiddleware(), LoggingMiddleware(logger))
	}
	if deps.Metrics != nil {
		e.middlewares = append(e.middlewares, MetricsMiddleware(deps.Metrics))
	}
	if deps.EnableTracing {
		e.middlewares = append(e.middlewares, TracingMiddleware())
	}
	if !deps.Hooks.empty() {
		e.middlewares = append(e.middlewares, HooksMiddleware(deps.Hooks))
	}
	e.middlewares = append(e.middlewares, deps.Middlewares...)

	return e, nil
}

// AddRouter attaches a Router whose registrations will be subscribed by
// StartAll.
func (e *Engine) AddRouter(r *Router) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errspkg.ErrAlreadyStarted
	}
	e.routers = append(e.routers, r)
	return nil
}

// StartAll seals every attached Router and issues one subscription per
// registration. Any subscribe failure tears down the subscriptions already
// made and aborts startup.
func (e *Engine) StartAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errspkg.ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for _, r := range e.routers {
		e.regs = append(e.regs, r.seal()...)
	}

	for _, reg := range e.regs {
		handler := e.buildHandler(runCtx, reg)
		sub, err := e.client.Subscribe(reg.compiled.Subject, reg.queue, handler)
		if err != nil {
			e.teardownLocked()
			cancel()
			return fmt.Errorf("subscribing %q: %w", reg.compiled.Subject, err)
		}
		reg.sub = sub
		reg.setState(StateSubscribed)
		e.logger.Info("subscription active", loggingpkg.LogFields{
			"registration": reg.name,
			"subject":      reg.compiled.Subject,
			"queue":        reg.queue,
			"mode":         reg.mode.String(),
		})
	}

	e.started = true
	return nil
}

// buildHandler assembles the full dispatch wrapper for one registration:
// stats innermost, then the middleware chain, then in-flight accounting.
func (e *Engine) buildHandler(runCtx context.Context, reg *registration) brokerpkg.Handler {
	info := reg.info()
	core := chainMiddlewares(
		append(append([]Middleware{}, e.middlewares...), statsMiddleware(reg.stats)),
		info,
		e.dispatchHandler(reg),
	)

	return func(msg *nats.Msg) {
		e.inflight.Add(1)
		defer e.inflight.Done()

		// Errors are fully handled inside the chain; one failed message
		// must never affect the subscription.
		_ = core(runCtx, msg)
	}
}

// DrainAll unsubscribes every active registration and waits for in-flight
// dispatches up to the grace period. Dispatches still running afterwards are
// abandoned via context cancellation; their outcome is unobservable.
func (e *Engine) DrainAll(timeout time.Duration) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return errspkg.ErrNotStarted
	}
	if e.drained {
		e.mu.Unlock()
		return nil
	}
	e.drained = true

	var errs []error
	for _, reg := range e.regs {
		reg.setState(StateDraining)
		if reg.sub != nil {
			if err := reg.sub.Unsubscribe(); err != nil {
				errs = append(errs, fmt.Errorf("unsubscribing %q: %w", reg.compiled.Subject, err))
			}
		}
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	timedOut := false
	select {
	case <-done:
	case <-time.After(timeout):
		timedOut = true
	}

	e.cancel()

	e.mu.Lock()
	for _, reg := range e.regs {
		reg.setState(StateClosed)
	}
	e.mu.Unlock()

	if flusher, ok := e.client.(brokerpkg.Flusher); ok {
		if err := flusher.Flush(); err != nil {
			errs = append(errs, err)
		}
	}

	if timedOut {
		errs = append(errs, fmt.Errorf("drain grace period of %s elapsed with dispatches in flight", timeout))
	}
	return errors.Join(errs...)
}

func (e *Engine) teardownLocked() {
	for _, reg := range e.regs {
		if reg.sub != nil {
			_ = reg.sub.Unsubscribe()
			reg.sub = nil
		}
		reg.setState(StateClosed)
	}
}

// Registrations reports every registration with current state and counters.
func (e *Engine) Registrations() []RegistrationInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	infos := make([]RegistrationInfo, 0, len(e.regs))
	for _, reg := range e.regs {
		infos = append(infos, reg.info())
	}

	// Before StartAll the registrations still live inside the routers.
	if !e.started {
		for _, r := range e.routers {
			r.mu.Lock()
			for _, reg := range r.regs {
				infos = append(infos, reg.info())
			}
			r.mu.Unlock()
		}
	}
	return infos
}
