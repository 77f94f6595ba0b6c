package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces child keys for Push.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Keys generates time-ordered keys, so pushed children sort by
// creation time like a chronological list.
type UUIDv7Keys struct{}

// Generate returns a hyphenated UUIDv7. Panics if the system random source
// fails.
func (UUIDv7Keys) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedKeys returns predetermined keys, for tests and golden output.
type FixedKeys struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewFixedKeys creates a generator that returns keys in order.
func NewFixedKeys(keys ...string) *FixedKeys {
	return &FixedKeys{keys: keys}
}

// Generate returns the next key. Panics when all keys are used up.
func (g *FixedKeys) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedKeys: all keys exhausted")
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}
