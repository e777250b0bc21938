// Package ids generates the identifiers attached to failure replies and log
// lines. ULIDs are used because they sort by creation time, which keeps
// related log lines adjacent.
package ids

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

var entropy = &ulid.LockedMonotonicReader{
	MonotonicReader: ulid.Monotonic(rand.Reader, 0),
}

// New returns a 26-character, time-sortable identifier. Safe for concurrent
// use.
func New() string {
	return ulid.MustNew(ulid.Now(), entropy).String()
}
