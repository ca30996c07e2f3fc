package registry

import (
	"math/rand"
)

// KeyRegistry is the list of keys a single virtual user has written.
// GET requests pick their key from it, so it only ever contains keys that were
// sent in a SET request of the same user (whether the SET succeeded or not).
//
// A capacity of 0 means the registry grows without bound. With a positive
// capacity the registry is a ring: once full, every Append overwrites the
// oldest key.
//
// A KeyRegistry is owned by exactly one user and is not safe for concurrent use.
type KeyRegistry struct {
	keys     []string
	next     int // position of the next write once the ring is full
	capacity int
}

// New creates an empty registry, capacity <= 0 means unbounded
func New(capacity int) *KeyRegistry {
	if capacity < 0 {
		capacity = 0
	}
	return &KeyRegistry{capacity: capacity}
}

// Append records a key, duplicates are kept
func (r *KeyRegistry) Append(key string) {
	if r.capacity == 0 || len(r.keys) < r.capacity {
		r.keys = append(r.keys, key)
		return
	}
	r.keys[r.next] = key
	r.next = (r.next + 1) % r.capacity
}

// Len returns the number of recorded keys
func (r *KeyRegistry) Len() int {
	return len(r.keys)
}

// Random returns a uniformly chosen key. The boolean is false if the registry is empty.
func (r *KeyRegistry) Random(rng *rand.Rand) (string, bool) {
	if len(r.keys) == 0 {
		return "", false
	}
	return r.keys[rng.Intn(len(r.keys))], true
}

// Keys returns a copy of the recorded keys, oldest first
func (r *KeyRegistry) Keys() []string {
	out := make([]string, 0, len(r.keys))
	out = append(out, r.keys[r.next:]...)
	out = append(out, r.keys[:r.next]...)
	return out
}

// Reset removes all keys
func (r *KeyRegistry) Reset() {
	r.keys = nil
	r.next = 0
}
