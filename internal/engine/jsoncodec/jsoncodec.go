// Package jsoncodec centralises JSON handling for reply bodies and
// diagnostics. It runs sonic in encoding/json-compatible mode so wire output
// matches the standard library byte for byte.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Marshal renders v as compact JSON.
func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

// MarshalIndent renders v as indented JSON, for logs and debug output.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses data into v.
func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }

// Encode streams v as JSON to w.
func Encode(w io.Writer, v any) error { return api.NewEncoder(w).Encode(v) }

// Decode parses one JSON value from r into v.
func Decode(r io.Reader, v any) error { return api.NewDecoder(r).Decode(v) }
