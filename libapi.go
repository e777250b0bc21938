package subwire

import (
	enginepkg "github.com/subwire/subwire/internal/engine"
	bindingpkg "github.com/subwire/subwire/internal/engine/binding"
	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	configpkg "github.com/subwire/subwire/internal/engine/config"
	encodingpkg "github.com/subwire/subwire/internal/engine/encoding"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
	idspkg "github.com/subwire/subwire/internal/engine/ids"
	jsoncodec "github.com/subwire/subwire/internal/engine/jsoncodec"
	loggingpkg "github.com/subwire/subwire/internal/engine/logging"
	metadatapkg "github.com/subwire/subwire/internal/engine/metadata"
	subjectpkg "github.com/subwire/subwire/internal/engine/subject"
)

type (
	Config       = configpkg.Config
	Engine       = enginepkg.Engine
	Dependencies = enginepkg.Dependencies
	Router       = enginepkg.Router
	RouterOption = enginepkg.RouterOption
	Option       = enginepkg.Option
	Mode         = enginepkg.Mode
	State        = enginepkg.State

	// Broker boundary
	Client       = brokerpkg.Client
	Subscription = brokerpkg.Subscription
	Conn         = brokerpkg.Conn
	MemoryClient = brokerpkg.MemoryClient

	// Parameter binding
	Param    = bindingpkg.Param
	Dep      = bindingpkg.Dep
	Rule     = bindingpkg.Rule
	Kind     = bindingpkg.Kind
	Subject  = bindingpkg.Subject
	Reply    = bindingpkg.Reply
	Delivery = bindingpkg.Delivery
	Callback = bindingpkg.Callback

	// Subject compilation
	CompiledSubject = subjectpkg.Compiled
	Placeholders    = subjectpkg.Placeholders

	// Reply encoding
	Encoder     = encodingpkg.Encoder
	EncoderFunc = encodingpkg.Func

	// Dispatch pipeline
	Handler          = enginepkg.Handler
	Middleware       = enginepkg.Middleware
	DispatchContext  = enginepkg.DispatchContext
	DispatchHooks    = enginepkg.DispatchHooks
	DispatchStats    = enginepkg.DispatchStats
	StatsSnapshot    = enginepkg.StatsSnapshot
	RegistrationInfo = enginepkg.RegistrationInfo

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Error types
	ExtractionError = errspkg.ExtractionError
	EncoderError    = errspkg.EncoderError
	CallbackError   = errspkg.CallbackError
)

var (
	NewEngine      = enginepkg.New
	NewRouter      = enginepkg.NewRouter
	ValidateConfig = configpkg.ValidateConfig

	// Broker clients
	Connect         = brokerpkg.Connect
	Wrap            = brokerpkg.Wrap
	NewMemoryClient = brokerpkg.NewMemoryClient

	// Registration options
	WithQueue          = enginepkg.WithQueue
	WithEncoder        = enginepkg.WithEncoder
	WithParams         = enginepkg.WithParams
	WithName           = enginepkg.WithName
	WithDefaultEncoder = enginepkg.WithDefaultEncoder

	// Parameter descriptors
	P       = bindingpkg.P
	D       = bindingpkg.D
	Depends = bindingpkg.Depends
	Token   = bindingpkg.Token
	Header  = bindingpkg.Header
	Field   = bindingpkg.Field

	CompileSubject = subjectpkg.Compile
	InspectParams  = bindingpkg.Inspect

	// Encoders
	DefaultEncoder = encodingpkg.Default
	JSONEncoder    = encodingpkg.JSON
	ProtoEncoder   = encodingpkg.Proto

	// Middlewares and hooks
	RecovererMiddleware = enginepkg.RecovererMiddleware
	LoggingMiddleware   = enginepkg.LoggingMiddleware
	MetricsMiddleware   = enginepkg.MetricsMiddleware
	TracingMiddleware   = enginepkg.TracingMiddleware
	HooksMiddleware     = enginepkg.HooksMiddleware
	LoggingHooks        = enginepkg.LoggingHooks

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.Nop

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.New

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	// Registration-time errors
	ErrMalformedSubject       = errspkg.ErrMalformedSubject
	ErrDuplicatePlaceholder   = errspkg.ErrDuplicatePlaceholder
	ErrInvalidPlaceholderName = errspkg.ErrInvalidPlaceholderName
	ErrEmptySubject           = errspkg.ErrEmptySubject
	ErrUnresolvableParameter  = errspkg.ErrUnresolvableParameter
	ErrCyclicDependency       = errspkg.ErrCyclicDependency
	ErrParameterCount         = errspkg.ErrParameterCount
	ErrCallbackRequired       = errspkg.ErrCallbackRequired
	ErrCallbackReturns        = errspkg.ErrCallbackReturns
	ErrNotAFunction           = errspkg.ErrNotAFunction
	ErrClientRequired         = errspkg.ErrClientRequired
	ErrEncoderRequired        = errspkg.ErrEncoderRequired
	ErrLoggerRequired         = errspkg.ErrLoggerRequired
	ErrAlreadyStarted         = errspkg.ErrAlreadyStarted
	ErrNotStarted             = errspkg.ErrNotStarted
	ErrNoReplySubject         = errspkg.ErrNoReplySubject
)

// Response modes.
const (
	ModeSubscribe = enginepkg.ModeSubscribe
	ModeReply     = enginepkg.ModeReply
	ModeService   = enginepkg.ModeService
)

// Registration lifecycle states.
const (
	StateRegistered = enginepkg.StateRegistered
	StateSubscribed = enginepkg.StateSubscribed
	StateDraining   = enginepkg.StateDraining
	StateClosed     = enginepkg.StateClosed
)

// Binding rule kinds.
const (
	KindDependency  = bindingpkg.KindDependency
	KindClient      = bindingpkg.KindClient
	KindPayload     = bindingpkg.KindPayload
	KindRawMessage  = bindingpkg.KindRawMessage
	KindSubject     = bindingpkg.KindSubject
	KindReply       = bindingpkg.KindReply
	KindPlaceholder = bindingpkg.KindPlaceholder
)

// Service reply headers, present on every service-mode reply.
const (
	HeaderStatus      = enginepkg.HeaderStatus
	HeaderContentType = enginepkg.HeaderContentType

	StatusInternalError = enginepkg.StatusInternalError
)
