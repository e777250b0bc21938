package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
)

// Handler processes one delivered message through the dispatch pipeline.
type Handler func(ctx context.Context, msg *nats.Msg) error

// Middleware wraps the dispatch of a single registration. The info argument
// identifies the registration the chain is being built for.
type Middleware func(info RegistrationInfo, next Handler) Handler

// chainMiddlewares applies middlewares so that the first entry is outermost.
func chainMiddlewares(middlewares []Middleware, info RegistrationInfo, handler Handler) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](info, handler)
	}
	return handler
}

// RecovererMiddleware converts panics escaping the dispatch pipeline into
// errors. Callback panics are already contained at the wrapper boundary;
// this guards encoder and middleware code.
func RecovererMiddleware() Middleware {
	return func(info RegistrationInfo, next Handler) Handler {
		return func(ctx context.Context, msg *nats.Msg) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("dispatch panicked: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs every dispatch at debug level and failures at error
// level, tagged with the registration and the concrete subject.
func LoggingMiddleware(logger loggingpkg.ServiceLogger) Middleware {
	return func(info RegistrationInfo, next Handler) Handler {
		scoped := logger.With(loggingpkg.LogFields{
			"registration": info.Name,
			"pattern":      info.Pattern,
		})
		return func(ctx context.Context, msg *nats.Msg) error {
			scoped.Debug("dispatching message", loggingpkg.LogFields{
				"subject": msg.Subject,
				"bytes":   len(msg.Data),
			})
			err := next(ctx, msg)
			if err != nil {
				scoped.Error("dispatch failed", err, loggingpkg.LogFields{
					"subject": msg.Subject,
				})
			}
			return err
		}
	}
}

// MetricsMiddleware records dispatch counts and latencies with Prometheus.
// The collectors are registered once on the supplied registerer.
func MetricsMiddleware(registerer prometheus.Registerer) Middleware {
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subwire",
		Name:      "messages_total",
		Help:      "Messages dispatched, by registration pattern, mode, and result.",
	}, []string{"pattern", "mode", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subwire",
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent extracting, invoking, and replying per message.",
	}, []string{"pattern", "mode"})

	registerer.MustRegister(messages, duration)

	return func(info RegistrationInfo, next Handler) Handler {
		mode := info.Mode.String()
		return func(ctx context.Context, msg *nats.Msg) error {
			start := time.Now()
			err := next(ctx, msg)
			duration.WithLabelValues(info.Pattern, mode).Observe(time.Since(start).Seconds())

			result := "ok"
			if err != nil {
				result = "error"
			}
			messages.WithLabelValues(info.Pattern, mode, result).Inc()
			return err
		}
	}
}

// TracingMiddleware opens an OpenTelemetry consumer span per dispatch.
func TracingMiddleware() Middleware {
	tracer := otel.Tracer("github.com/subwire/subwire")
	return func(info RegistrationInfo, next Handler) Handler {
		return func(ctx context.Context, msg *nats.Msg) error {
			ctx, span := tracer.Start(ctx, "subwire.dispatch",
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.destination.name", msg.Subject),
					attribute.String("subwire.pattern", info.Pattern),
					attribute.String("subwire.mode", info.Mode.String()),
				),
			)
			defer span.End()

			err := next(ctx, msg)
			if err != nil {
				span.RecordError(err)
			}
			return err
		}
	}
}

// statsMiddleware is always wired innermost so counters reflect the core
// dispatch outcome, untouched by user middlewares.
func statsMiddleware(stats *DispatchStats) Middleware {
	return func(info RegistrationInfo, next Handler) Handler {
		return func(ctx context.Context, msg *nats.Msg) error {
			stats.onDispatch()
			err := next(ctx, msg)
			stats.onResult(err)
			return err
		}
	}
}
