// Package media owns the playable audio blobs a chat session receives.
// A Ref stands in for a browser object URL: the bytes stay resident until
// the owner releases them or drops the whole store. Larger payloads are
// held zstd-compressed to keep long sessions cheap.
package media

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Ref identifies one stored blob.
type Ref string

// NoRef is the zero Ref.
const NoRef Ref = ""

// ErrReleased is returned by Open for unknown or already-released refs.
var ErrReleased = errors.New("media: blob released or unknown")

const compressThreshold = 4 * 1024 // only compress payloads > 4KB

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil)
)

type blob struct {
	data       []byte
	compressed bool
	size       int // uncompressed length
}

// Store is an in-memory keyed blob store.
type Store struct {
	mu    sync.Mutex
	blobs map[Ref]blob
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{blobs: make(map[Ref]blob)}
}

// Put registers payload under a fresh ref. Payloads past the threshold are
// stored compressed when that actually shrinks them.
func (s *Store) Put(payload []byte) Ref {
	b := blob{data: append([]byte(nil), payload...), size: len(payload)}
	if len(payload) > compressThreshold {
		compressed := encoder.EncodeAll(payload, make([]byte, 0, len(payload)))
		if len(compressed) < len(payload) {
			b.data = compressed
			b.compressed = true
		}
	}

	ref := Ref(uuid.NewString())
	s.mu.Lock()
	s.blobs[ref] = b
	s.mu.Unlock()
	return ref
}

// Open returns the original bytes stored under ref.
func (s *Store) Open(ref Ref) ([]byte, error) {
	s.mu.Lock()
	b, ok := s.blobs[ref]
	s.mu.Unlock()

	if !ok {
		return nil, ErrReleased
	}
	if !b.compressed {
		return append([]byte(nil), b.data...), nil
	}
	return decoder.DecodeAll(b.data, nil)
}

// Release frees the blob under ref. Releasing an unknown ref is a no-op.
func (s *Store) Release(ref Ref) {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
}

// ReleaseAll drops every resident blob.
func (s *Store) ReleaseAll() {
	s.mu.Lock()
	s.blobs = make(map[Ref]blob)
	s.mu.Unlock()
}

// Len returns the number of resident blobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Size returns the total uncompressed bytes resident.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, b := range s.blobs {
		total += b.size
	}
	return total
}
