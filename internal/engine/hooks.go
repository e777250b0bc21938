package engine

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
)

// DispatchContext provides information about one dispatch to hooks.
type DispatchContext struct {
	// Registration is the name of the registration handling the message.
	Registration string
	// Pattern is the subject pattern the registration was created with.
	Pattern string
	// Subject is the concrete subject of the inbound message.
	Subject string
	// Queue is the queue group, empty for plain subscriptions.
	Queue string
	// StartedAt is when the dispatch began.
	StartedAt time.Time
	// Duration is how long the dispatch took (set in OnDone and OnError).
	Duration time.Duration
}

// DispatchHooks defines callbacks around dispatch execution. All hooks are
// optional; nil hooks are simply not called.
type DispatchHooks struct {
	// OnStart is called before extraction begins.
	OnStart func(ctx DispatchContext)
	// OnDone is called after a dispatch completes without error.
	OnDone func(ctx DispatchContext)
	// OnError is called when a dispatch fails, with the final error.
	OnError func(ctx DispatchContext, err error)
}

func (h DispatchHooks) empty() bool {
	return h.OnStart == nil && h.OnDone == nil && h.OnError == nil
}

// Merge combines two hook sets; other's hooks run after h's.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnStart: chainHook(h.OnStart, other.OnStart),
		OnDone:  chainHook(h.OnDone, other.OnDone),
		OnError: chainErrHook(h.OnError, other.OnError),
	}
}

func chainHook(a, b func(DispatchContext)) func(DispatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrHook(a, b func(DispatchContext, error)) func(DispatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns hooks that log dispatch lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	return DispatchHooks{
		OnDone: func(ctx DispatchContext) {
			logger.Debug("dispatch done", loggingpkg.LogFields{
				"registration": ctx.Registration,
				"subject":      ctx.Subject,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
		OnError: func(ctx DispatchContext, err error) {
			logger.Error("dispatch hook error", err, loggingpkg.LogFields{
				"registration": ctx.Registration,
				"subject":      ctx.Subject,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
	}
}

// HooksMiddleware adapts a hook set into a dispatch middleware.
func HooksMiddleware(hooks DispatchHooks) Middleware {
	return func(info RegistrationInfo, next Handler) Handler {
		return func(ctx context.Context, msg *nats.Msg) error {
			dctx := DispatchContext{
				Registration: info.Name,
				Pattern:      info.Pattern,
				Subject:      msg.Subject,
				Queue:        info.Queue,
				StartedAt:    time.Now(),
			}
			if hooks.OnStart != nil {
				hooks.OnStart(dctx)
			}

			err := next(ctx, msg)
			dctx.Duration = time.Since(dctx.StartedAt)

			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(dctx, err)
				}
				return err
			}
			if hooks.OnDone != nil {
				hooks.OnDone(dctx)
			}
			return nil
		}
	}
}
