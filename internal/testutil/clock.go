package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/graphledger/internal/sequence"
)

// DeterministicClock provides a thread-safe change log sequence for tests.
//
// Unlike sequence.Clock, DeterministicClock can be reset for test reuse and
// can be told to fail, so the same scenario always sees the same numbers.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
	err error
}

var (
	_ sequence.Provider = (*DeterministicClock)(nil)
	_ sequence.Advancer = (*DeterministicClock)(nil)
	_ sequence.Reserver = (*DeterministicClock)(nil)
)

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number, or the injected
// failure.
func (c *DeterministicClock) Next() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.seq++
	return c.seq, nil
}

// Reserve hands out n consecutive numbers and returns the first, or the
// injected failure.
func (c *DeterministicClock) Reserve(n int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if n <= 0 {
		return 0, fmt.Errorf("reserve %d numbers", n)
	}
	first := c.seq + 1
	c.seq += n
	return first, nil
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq, nil
}

// Advance raises the clock to mark. It never moves backwards.
func (c *DeterministicClock) Advance(mark int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mark > c.seq {
		c.seq = mark
	}
	return nil
}

// FailWith makes every following Next call return err. Pass nil to recover.
func (c *DeterministicClock) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Reset resets the clock to 0 and clears any injected failure.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.err = nil
}
