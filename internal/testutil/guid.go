package testutil

import (
	"fmt"
	"sync"
)

// SequentialGUIDs generates GUID-shaped strings numbered from 1:
// 00000000-0000-0000-0000-000000000001, ...000002, and so on.
//
// The output is stable across runs, which keeps golden statements
// byte-identical.
type SequentialGUIDs struct {
	mu sync.Mutex
	n  int64
}

// NewSequentialGUIDs creates a generator whose first GUID ends in 1.
func NewSequentialGUIDs() *SequentialGUIDs {
	return &SequentialGUIDs{}
}

// Generate returns the next GUID.
func (g *SequentialGUIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return GUID(g.n)
}

// GUID returns the n-th GUID of a fresh SequentialGUIDs.
func GUID(n int64) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

// FixedGUID generates the same GUID every time.
type FixedGUID struct {
	guid string
}

// NewFixedGUID creates a fixed generator. An empty guid becomes
// "test-guid-default".
func NewFixedGUID(guid string) *FixedGUID {
	if guid == "" {
		guid = "test-guid-default"
	}
	return &FixedGUID{guid: guid}
}

// Generate returns the fixed GUID.
func (g *FixedGUID) Generate() string {
	return g.guid
}
