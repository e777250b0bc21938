package metadata

import (
	"net/http"

	"github.com/nats-io/nats.go"
)

// Metadata represents the headers carried alongside a reply.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// ToNATS converts the metadata into a NATS header block. Keys are
// canonicalised the way net/http does, which is what nats.go expects.
func ToNATS(m Metadata) nats.Header {
	if len(m) == 0 {
		return nats.Header{}
	}
	hdr := make(nats.Header, len(m))
	for k, v := range m {
		hdr[http.CanonicalHeaderKey(k)] = []string{v}
	}
	return hdr
}

// FromNATS flattens a NATS header block into a Metadata map, keeping the
// first value for each key.
func FromNATS(hdr nats.Header) Metadata {
	if len(hdr) == 0 {
		return Metadata{}
	}
	md := make(Metadata, len(hdr))
	for k, vs := range hdr {
		if len(vs) > 0 {
			md[k] = vs[0]
		}
	}
	return md
}
