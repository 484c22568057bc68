// Package entropy provides ULID identifiers safe to generate from
// concurrent goroutines.
package entropy

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// lockedMonotonic serialises reads of a monotonic source.
// https://github.com/oklog/ulid/blob/0d4fda9d6345755e157a256fd33d48556c5f4a7a/ulid_test.go#L633-L636
type lockedMonotonic struct {
	mtx sync.Mutex
	ulid.MonotonicReader
}

func (r *lockedMonotonic) MonotonicRead(ms uint64, p []byte) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	return r.MonotonicReader.MonotonicRead(ms, p)
}

// New returns a new MonotonicReader.
func New() ulid.MonotonicReader {
	// nolint:gosec // crypto/rand not necessary for ULID generation
	monotonic := ulid.Monotonic(rand.New(
		rand.NewSource(time.Now().UnixNano()),
	), 0)

	return &lockedMonotonic{MonotonicReader: monotonic}
}

// ID returns a ULID string for the current time drawn from a
// MonotonicReader.
func ID(source ulid.MonotonicReader) (string, error) {
	id, err := ulid.New(ulid.Now(), source)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}
