// Package ids generates sortable unique identifiers.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

//nolint:gochecknoglobals // monotonic entropy is shared process-wide and guarded by mu
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID string for the current time. IDs generated by one
// process sort in creation order.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID string with the timestamp component set to t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
