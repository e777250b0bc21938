package broker

import (
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// MemoryClient is an in-process Client used by tests and examples. It
// implements NATS subject matching ("*" for one token, ">" for the rest)
// and queue-group load balancing, delivering messages synchronously in the
// publisher's goroutine.
type MemoryClient struct {
	mu      sync.Mutex
	subs    []*memorySubscription
	cursors map[string]int
}

// NewMemoryClient returns an empty in-memory broker.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{cursors: make(map[string]int)}
}

type memorySubscription struct {
	client  *MemoryClient
	subject string
	tokens  []string
	queue   string
	handler Handler
	closed  bool
}

func (s *memorySubscription) Unsubscribe() error {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.closed = true

	kept := s.client.subs[:0]
	for _, sub := range s.client.subs {
		if sub != s {
			kept = append(kept, sub)
		}
	}
	s.client.subs = kept
	return nil
}

func (c *MemoryClient) Subscribe(subject, queue string, handler Handler) (Subscription, error) {
	sub := &memorySubscription{
		client:  c,
		subject: subject,
		tokens:  strings.Split(subject, "."),
		queue:   queue,
		handler: handler,
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub, nil
}

func (c *MemoryClient) Publish(subject string, data []byte, header nats.Header) error {
	return c.PublishMsg(&nats.Msg{Subject: subject, Data: data, Header: header})
}

// PublishMsg delivers a fully formed message, reply subject included. Tests
// use it to exercise request/reply flows without a server.
func (c *MemoryClient) PublishMsg(msg *nats.Msg) error {
	tokens := strings.Split(msg.Subject, ".")

	c.mu.Lock()
	var plain []*memorySubscription
	groups := make(map[string][]*memorySubscription)
	for _, sub := range c.subs {
		if sub.closed || !matchTokens(sub.tokens, tokens) {
			continue
		}
		if sub.queue == "" {
			plain = append(plain, sub)
			continue
		}
		key := sub.subject + " " + sub.queue
		groups[key] = append(groups[key], sub)
	}

	targets := plain
	// One member per queue group, in round-robin order.
	for key, members := range groups {
		cursor := c.cursors[key] % len(members)
		c.cursors[key] = cursor + 1
		targets = append(targets, members[cursor])
	}
	c.mu.Unlock()

	for _, sub := range targets {
		sub.handler(&nats.Msg{Subject: msg.Subject, Reply: msg.Reply, Data: msg.Data, Header: msg.Header})
	}
	return nil
}

// ActiveSubscriptions reports how many subscriptions are currently live.
func (c *MemoryClient) ActiveSubscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func matchTokens(pattern, subject []string) bool {
	for i, token := range pattern {
		if token == ">" {
			return i < len(subject)
		}
		if i >= len(subject) {
			return false
		}
		if token != "*" && token != subject[i] {
			return false
		}
	}
	return len(pattern) == len(subject)
}
