package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialGUIDs(t *testing.T) {
	gen := NewSequentialGUIDs()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", gen.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", gen.Generate())
	assert.Equal(t, GUID(3), gen.Generate())
}

func TestSequentialGUIDs_Deterministic(t *testing.T) {
	a, b := NewSequentialGUIDs(), NewSequentialGUIDs()
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestFixedGUID(t *testing.T) {
	gen := NewFixedGUID("01234567-89ab-cdef-0123-456789abcdef")
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", gen.Generate())
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", gen.Generate())

	assert.Equal(t, "test-guid-default", NewFixedGUID("").Generate())
}
