// Package sequence allocates change log numbers.
//
// Every change log entry is stamped with a number from a Provider. Numbers
// are unique and strictly increasing across the whole store, so the provider
// is the only shared mutable state in the engine. Two implementations ship:
// Clock (in-memory, atomic) and Bolt (bbolt bucket sequence, durable across
// restarts). Both can be raised to the store's high-water mark on start-up.
package sequence

// Provider hands out change log numbers.
//
// Next returns a number greater than every number returned before it.
// Each change log entry calls Next exactly once.
type Provider interface {
	Next() (int64, error)
	Current() (int64, error)
}

// Advancer is implemented by providers that can be raised to a floor, such
// as the highest number already persisted in the graph store.
type Advancer interface {
	// Advance moves the provider so the next number is above mark. It never
	// moves a provider backwards.
	Advance(mark int64) error
}

// Reserver is implemented by providers that can hand out a contiguous
// block of numbers in one step. Reserve(n) returns the first number of the
// block; the block is first..first+n-1.
type Reserver interface {
	Reserve(n int64) (int64, error)
}

// Take allocates n numbers from p in allocation order. A Reserver hands out
// one block; any other provider is asked n times.
func Take(p Provider, n int64) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}
	numbers := make([]int64, n)
	if r, ok := p.(Reserver); ok {
		first, err := r.Reserve(n)
		if err != nil {
			return nil, err
		}
		for i := range numbers {
			numbers[i] = first + int64(i)
		}
		return numbers, nil
	}
	for i := range numbers {
		num, err := p.Next()
		if err != nil {
			return nil, err
		}
		numbers[i] = num
	}
	return numbers, nil
}
