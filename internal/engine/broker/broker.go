// Package broker defines the engine's sole I/O boundary: a client able to
// subscribe, publish, and unsubscribe. Connection management (reconnects,
// TLS, authentication) belongs to the underlying NATS client, never to the
// engine.
package broker

import (
	"github.com/nats-io/nats.go"
)

// Handler processes one delivered message. The engine registers exactly one
// handler per subscription.
type Handler func(msg *nats.Msg)

// Subscription is the handle returned by Subscribe, used to tear down the
// subscription when the host drains.
type Subscription interface {
	Unsubscribe() error
}

// Client is the broker boundary the engine is handed by its host. A queue of
// "" means a plain subscription; a non-empty queue joins a queue group so
// the broker load-balances deliveries across group members.
type Client interface {
	Subscribe(subject, queue string, handler Handler) (Subscription, error)
	Publish(subject string, data []byte, header nats.Header) error
}

// Flusher is optionally implemented by clients that buffer outgoing
// publishes. The engine flushes after draining when available.
type Flusher interface {
	Flush() error
}
