package errors

import (
	sterrors "errors"
	"fmt"
)

// Registration-time sentinels. Any of these surfacing during router
// registration is fatal to that registration and must abort startup.
var (
	ErrMalformedSubject       = sterrors.New("subwire: placeholder must occupy a whole subject token")
	ErrDuplicatePlaceholder   = sterrors.New("subwire: placeholder name appears more than once")
	ErrInvalidPlaceholderName = sterrors.New("subwire: placeholder name is not a valid identifier")
	ErrEmptySubject           = sterrors.New("subwire: subject pattern is empty")
	ErrUnresolvableParameter  = sterrors.New("subwire: parameter cannot be bound to any rule")
	ErrCyclicDependency       = sterrors.New("subwire: dependency graph contains a cycle")
	ErrParameterCount         = sterrors.New("subwire: parameter descriptors do not match callback signature")
	ErrCallbackRequired       = sterrors.New("subwire: callback function is required")
	ErrCallbackReturns        = sterrors.New("subwire: callback must return at most a value and an error")
	ErrNotAFunction           = sterrors.New("subwire: callback must be a function")
	ErrClientRequired         = sterrors.New("subwire: broker client is required")
	ErrLoggerRequired         = sterrors.New("subwire: logger is required")
	ErrEncoderRequired        = sterrors.New("subwire: reply encoder is required")
	ErrAlreadyStarted         = sterrors.New("subwire: engine already started")
	ErrNotStarted             = sterrors.New("subwire: engine not started")
)

// Runtime sentinels, isolated to a single message.
var (
	ErrNoReplySubject = sterrors.New("subwire: inbound message carries no reply subject")
)

// ExtractionError reports a parameter that could not be produced for one
// inbound message. The subscription keeps running.
type ExtractionError struct {
	Param string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("subwire: extracting parameter %q: %v", e.Param, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EncoderError reports a reply value the configured encoder rejected.
type EncoderError struct {
	Err error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("subwire: encoding reply: %v", e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }

// CallbackError wraps a failure raised by a user callback, including
// recovered panics. It never propagates past the dispatch wrapper.
type CallbackError struct {
	Err      error
	Panicked bool
}

func (e *CallbackError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("subwire: callback panicked: %v", e.Err)
	}
	return fmt.Sprintf("subwire: callback failed: %v", e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
