package engine

import (
	"strings"
	"sync"

	bindingpkg "github.com/subwire/subwire/internal/engine/binding"
	encodingpkg "github.com/subwire/subwire/internal/engine/encoding"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
	subjectpkg "github.com/subwire/subwire/internal/engine/subject"
)

// Mode selects the response discipline applied after a callback runs.
type Mode int

const (
	// ModeSubscribe is fire-and-forget: the return value is ignored and no
	// reply is ever published.
	ModeSubscribe Mode = iota
	// ModeReply encodes the return value and publishes it to the inbound
	// reply subject. Encoder failures suppress the reply.
	ModeReply
	// ModeService always publishes exactly one reply, success or failure,
	// with status and content-type headers.
	ModeService
)

func (m Mode) String() string {
	switch m {
	case ModeSubscribe:
		return "subscribe"
	case ModeReply:
		return "subscribe_and_reply"
	case ModeService:
		return "service"
	default:
		return "unknown"
	}
}

// Option customises a single registration.
type Option func(*registrationOptions)

type registrationOptions struct {
	name      string
	queue     string
	encoder   encodingpkg.Encoder
	params    []bindingpkg.Param
	mediaType string
}

// WithQueue joins the subscription to a queue group so the broker
// load-balances deliveries across competing instances.
func WithQueue(queue string) Option {
	return func(o *registrationOptions) { o.queue = queue }
}

// WithEncoder overrides the Router's default reply encoder for this
// registration.
func WithEncoder(encoder encodingpkg.Encoder) Option {
	return func(o *registrationOptions) { o.encoder = encoder }
}

// WithParams describes the callback's parameters, in order, for placeholder
// matching and dependency defaults. Parameters bound purely by declared type
// need no descriptor.
func WithParams(params ...bindingpkg.Param) Option {
	return func(o *registrationOptions) { o.params = params }
}

// WithName overrides the generated registration name used in logs and
// introspection.
func WithName(name string) Option {
	return func(o *registrationOptions) { o.name = name }
}

// RouterOption customises a Router at construction time.
type RouterOption func(*Router)

// WithDefaultEncoder sets the encoder applied to registrations that do not
// specify their own.
func WithDefaultEncoder(encoder encodingpkg.Encoder) RouterOption {
	return func(r *Router) { r.encoder = encoder }
}

// Router aggregates registrations under a shared subject prefix and a shared
// default encoder. It is mutable only during the registration phase; once an
// Engine starts it, further registrations are rejected.
type Router struct {
	prefix  string
	encoder encodingpkg.Encoder

	mu     sync.Mutex
	sealed bool
	regs   []*registration
}

// NewRouter creates a Router. The prefix, when non-empty, is prepended to
// every registered pattern with a dot separator.
func NewRouter(prefix string, opts ...RouterOption) *Router {
	r := &Router{
		prefix:  strings.Trim(prefix, "."),
		encoder: encodingpkg.Default,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the subject prefix shared by all registrations.
func (r *Router) Prefix() string { return r.prefix }

// Subscribe registers a fire-and-forget callback for the pattern. The
// callback itself is never wrapped or replaced, so it stays independently
// testable; the generated dispatch wrapper lives only in the registration.
func (r *Router) Subscribe(pattern string, callback any, opts ...Option) error {
	return r.register(pattern, callback, ModeSubscribe, 0, opts)
}

// SubscribeAndReply registers a request/reply callback: the return value is
// encoded and published to the inbound reply subject. When the encoder
// fails, no reply is sent and the requester observes a timeout; this keeps
// malformed replies off the wire at the cost of a slower failure signal.
func (r *Router) SubscribeAndReply(pattern string, callback any, opts ...Option) error {
	return r.register(pattern, callback, ModeReply, 0, opts)
}

// Service registers a callback that always produces exactly one reply. On
// success the reply carries the given status code and the registration's
// media type; on any failure a diagnostic reply with a failure status is
// published instead, so requesters never wait out their timeout on internal
// errors.
func (r *Router) Service(pattern string, callback any, status int, mediaType string, opts ...Option) error {
	return r.register(pattern, callback, ModeService, status, append(opts, withMediaType(mediaType)))
}

func withMediaType(mediaType string) Option {
	return func(o *registrationOptions) { o.mediaType = mediaType }
}

func (r *Router) register(pattern string, callback any, mode Mode, status int, opts []Option) error {
	if callback == nil {
		return errspkg.ErrCallbackRequired
	}

	var o registrationOptions
	for _, opt := range opts {
		opt(&o)
	}

	full := pattern
	if r.prefix != "" {
		full = r.prefix + "." + pattern
	}

	compiled, err := subjectpkg.Compile(full)
	if err != nil {
		return err
	}

	built, err := bindingpkg.Build(callback, o.params, compiled.Placeholders)
	if err != nil {
		return err
	}

	encoder := o.encoder
	if encoder == nil {
		encoder = r.encoder
	}
	if encoder == nil {
		return errspkg.ErrEncoderRequired
	}

	mediaType := o.mediaType
	if mediaType == "" {
		mediaType = encoder.ContentType()
	}

	name := o.name
	if name == "" {
		name = mode.String() + " " + full
	}

	reg := &registration{
		name:      name,
		mode:      mode,
		compiled:  compiled,
		queue:     o.queue,
		encoder:   encoder,
		status:    status,
		mediaType: mediaType,
		callback:  built,
		stats:     newDispatchStats(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return errspkg.ErrAlreadyStarted
	}
	r.regs = append(r.regs, reg)
	return nil
}

// seal stops further registrations and hands the built set to the engine.
func (r *Router) seal() []*registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return r.regs
}
