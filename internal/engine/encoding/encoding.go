// Package encoding turns callback return values into reply bodies.
package encoding

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	errspkg "github.com/subwire/subwire/internal/engine/errors"
	jsoncodec "github.com/subwire/subwire/internal/engine/jsoncodec"
)

// Encoder converts a callback return value into a reply body. ContentType is
// used as the reply media type when a registration does not override it.
type Encoder interface {
	Encode(v any) ([]byte, error)
	ContentType() string
}

// Default is the encoder applied when a Router has no other default: strings
// and byte slices pass through verbatim, everything else is marshalled as
// JSON.
var Default Encoder = rawEncoder{}

// JSON always marshals the return value as JSON.
var JSON Encoder = jsonEncoder{}

// Proto marshals proto.Message return values with protojson.
var Proto Encoder = protoEncoder{}

type rawEncoder struct{}

func (rawEncoder) ContentType() string { return "text/plain" }

func (rawEncoder) Encode(v any) ([]byte, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case string:
		return []byte(value), nil
	case fmt.Stringer:
		return []byte(value.String()), nil
	default:
		data, err := jsoncodec.Marshal(v)
		if err != nil {
			return nil, &errspkg.EncoderError{Err: err}
		}
		return data, nil
	}
}

type jsonEncoder struct{}

func (jsonEncoder) ContentType() string { return "application/json" }

func (jsonEncoder) Encode(v any) ([]byte, error) {
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		return nil, &errspkg.EncoderError{Err: err}
	}
	return data, nil
}

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

type protoEncoder struct{}

func (protoEncoder) ContentType() string { return "application/json" }

func (protoEncoder) Encode(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, &errspkg.EncoderError{Err: fmt.Errorf("proto encoder requires a proto.Message, got %T", v)}
	}
	data, err := protoJSONMarshalOptions.Marshal(msg)
	if err != nil {
		return nil, &errspkg.EncoderError{Err: err}
	}
	return data, nil
}

// Func adapts a plain function into an Encoder.
type Func struct {
	EncodeFunc func(v any) ([]byte, error)
	MediaType  string
}

func (f Func) ContentType() string { return f.MediaType }

func (f Func) Encode(v any) ([]byte, error) {
	data, err := f.EncodeFunc(v)
	if err != nil {
		return nil, &errspkg.EncoderError{Err: err}
	}
	return data, nil
}
