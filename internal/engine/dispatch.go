package engine

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	bindingpkg "github.com/subwire/subwire/internal/engine/binding"
	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	encodingpkg "github.com/subwire/subwire/internal/engine/encoding"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
	idspkg "github.com/subwire/subwire/internal/engine/ids"
	jsoncodec "github.com/subwire/subwire/internal/engine/jsoncodec"
	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
	metadatapkg "github.com/subwire/subwire/internal/engine/metadata"
	subjectpkg "github.com/subwire/subwire/internal/engine/subject"
)

// Reply header keys present on every service-mode reply.
const (
	HeaderStatus      = "Status"
	HeaderContentType = "Content-Type"
)

// StatusInternalError is the status carried by service-mode failure replies.
const StatusInternalError = 500

// State tracks a registration through its lifecycle. There is no paused
// state: restarting means registering a fresh instance.
type State int32

const (
	StateRegistered State = iota
	StateSubscribed
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateSubscribed:
		return "subscribed"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// registration is one (pattern, callback, mode) triple compiled by a Router
// and owned by the Engine after StartAll.
type registration struct {
	name      string
	mode      Mode
	compiled  subjectpkg.Compiled
	queue     string
	encoder   encodingpkg.Encoder
	status    int
	mediaType string
	callback  *bindingpkg.Callback

	state atomic.Int32
	stats *DispatchStats
	sub   brokerpkg.Subscription
}

func (reg *registration) setState(s State) { reg.state.Store(int32(s)) }
func (reg *registration) getState() State  { return State(reg.state.Load()) }

// RegistrationInfo describes one registration for logs and introspection.
type RegistrationInfo struct {
	Name    string
	Pattern string
	Subject string
	Queue   string
	Mode    Mode
	State   State
	Stats   StatsSnapshot
}

func (reg *registration) info() RegistrationInfo {
	return RegistrationInfo{
		Name:    reg.name,
		Pattern: reg.compiled.Pattern,
		Subject: reg.compiled.Subject,
		Queue:   reg.queue,
		Mode:    reg.mode,
		State:   reg.getState(),
		Stats:   reg.stats.Snapshot(),
	}
}

// dispatchHandler builds the mode-aware core of the dispatch wrapper:
// extraction, invocation, and response handling for one message.
func (e *Engine) dispatchHandler(reg *registration) Handler {
	return func(ctx context.Context, msg *nats.Msg) error {
		delivery := bindingpkg.NewDelivery(msg, e.client)
		result, err := reg.callback.Invoke(ctx, delivery)

		switch reg.mode {
		case ModeSubscribe:
			// Fire-and-forget: failures are logged upstream and must never
			// unsubscribe or crash the dispatcher.
			return err

		case ModeReply:
			if err != nil {
				return err
			}
			data, encErr := reg.encoder.Encode(result)
			if encErr != nil {
				// No reply on encoder failure: the requester times out
				// rather than receiving a malformed body.
				return encErr
			}
			if msg.Reply == "" {
				return errspkg.ErrNoReplySubject
			}
			return e.client.Publish(msg.Reply, data, nil)

		case ModeService:
			return e.serviceReply(reg, msg, result, err)

		default:
			return err
		}
	}
}

// serviceReply publishes exactly one reply for the inbound request. The
// failure path reports a diagnostic body instead of staying silent so
// requesters never block past their timeout on internal errors.
func (e *Engine) serviceReply(reg *registration, msg *nats.Msg, result any, dispatchErr error) error {
	if dispatchErr == nil {
		data, encErr := reg.encoder.Encode(result)
		if encErr == nil {
			if msg.Reply == "" {
				return errspkg.ErrNoReplySubject
			}
			headers := metadatapkg.New(
				HeaderStatus, strconv.Itoa(reg.status),
				HeaderContentType, reg.mediaType,
			)
			return e.client.Publish(msg.Reply, data, metadatapkg.ToNATS(headers))
		}
		dispatchErr = encErr
	}

	if msg.Reply == "" {
		return dispatchErr
	}

	failureID := idspkg.New()
	body, marshalErr := jsoncodec.Marshal(map[string]string{
		"error": dispatchErr.Error(),
		"id":    failureID,
	})
	if marshalErr != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	headers := metadatapkg.New(
		HeaderStatus, strconv.Itoa(StatusInternalError),
		HeaderContentType, "application/json",
	)
	if pubErr := e.client.Publish(msg.Reply, body, metadatapkg.ToNATS(headers)); pubErr != nil {
		e.logger.Error("failed to publish failure reply", pubErr, loggingpkg.LogFields{
			"registration": reg.name,
			"subject":      msg.Subject,
			"failure_id":   failureID,
		})
	}
	return dispatchErr
}
