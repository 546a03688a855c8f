package sequence

import (
	"fmt"
	"sync/atomic"
)

// Clock is an in-memory monotonic counter.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations). Two
// processes writing to the same store must not each use their own Clock;
// use Bolt or a single writer instead.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose first Next returns start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next number. Calls are linearizable.
func (c *Clock) Next() (int64, error) {
	return c.seq.Add(1), nil
}

// Reserve hands out n consecutive numbers and returns the first.
func (c *Clock) Reserve(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("sequence: reserve %d numbers", n)
	}
	return c.seq.Add(n) - n + 1, nil
}

// Current returns the last number handed out without incrementing.
func (c *Clock) Current() (int64, error) {
	return c.seq.Load(), nil
}

// Advance raises the clock to mark if it is behind.
func (c *Clock) Advance(mark int64) error {
	for {
		cur := c.seq.Load()
		if cur >= mark {
			return nil
		}
		if c.seq.CompareAndSwap(cur, mark) {
			return nil
		}
	}
}
