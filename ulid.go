package doctalk

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// EntryID is a 16-byte monotonic ULID. IDs generated by one session sort in
// append order, so log order is recoverable from IDs alone.
//
// Layout (Crockford ULID spec):
//
//	[0-5]   48-bit Unix millisecond timestamp (big-endian)
//	[6-15]  80-bit random, monotonically incrementing within same ms
type EntryID [16]byte

// String returns the ID as lowercase hex.
func (id EntryID) String() string {
	return hex.EncodeToString(id[:])
}

// Time extracts the millisecond timestamp embedded in the ID.
func (id EntryID) Time() time.Time {
	ms := uint64(id[0])<<40 | uint64(id[1])<<32 | uint64(id[2])<<24 |
		uint64(id[3])<<16 | uint64(id[4])<<8 | uint64(id[5])
	return time.UnixMilli(int64(ms))
}

// ulidGen generates monotonic entry IDs. Thread-safe via mutex, entropy
// from crypto/rand.
type ulidGen struct {
	mu   sync.Mutex
	last EntryID
}

// next returns a fresh monotonic EntryID.
func (g *ulidGen) next() EntryID {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(time.Now().UnixMilli())

	var id EntryID
	id[0] = byte(now >> 40)
	id[1] = byte(now >> 32)
	id[2] = byte(now >> 24)
	id[3] = byte(now >> 16)
	id[4] = byte(now >> 8)
	id[5] = byte(now)

	// Same millisecond as the previous ID: keep its random part and
	// increment it as an 80-bit big-endian counter.
	if [6]byte(id[:6]) == [6]byte(g.last[:6]) {
		copy(id[6:], g.last[6:])
		for i := 15; i >= 6; i-- {
			id[i]++
			if id[i] != 0 {
				break
			}
		}
	} else {
		rand.Read(id[6:])
	}

	g.last = id
	return id
}
