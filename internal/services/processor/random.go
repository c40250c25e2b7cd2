package processor

import (
	"math/rand/v2"
	"strings"
)

const (
	messageIDLength   = 32
	messageIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Rand is the source of randomness for placement and message ids.
// Implementations used by a shared Compositor must be safe for concurrent use.
type Rand interface {
	// IntN returns a uniform integer in [0, n). n must be positive.
	IntN(n int) int
}

// globalRand uses the math/rand/v2 top-level functions, which keep
// per-thread state and never serialize callers on a lock.
type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// NewMessageID returns a 32 character id drawn from [a-z0-9].
func NewMessageID(r Rand) string {
	if r == nil {
		r = globalRand{}
	}

	var b strings.Builder
	b.Grow(messageIDLength)
	for i := 0; i < messageIDLength; i++ {
		b.WriteByte(messageIDAlphabet[r.IntN(len(messageIDAlphabet))])
	}
	return b.String()
}
