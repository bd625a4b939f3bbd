package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
	last    time.Time
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
// IDs issued by one process sort in the order they were issued.
func New() string {
	id, _ := NewAt()
	return id
}

// NewAt returns a ULID together with the timestamp it encodes. The timestamp
// never goes backwards within the process, so records created later never sort earlier.
func NewAt() (string, time.Time) {
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if !now.After(last) {
		now = last
	}
	last = now
	return ulid.MustNew(ulid.Timestamp(now), entropy).String(), now
}

// NewConnectionID returns a random identifier for a live transport session.
func NewConnectionID() string {
	return uuid.NewString()
}
