package kdbmlerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeQuery, "'type")
	outer := Wrap(inner, ErrorTypeConnection, "query failed")

	require.NotNil(t, outer)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, errors.Is(outer, inner))
	assert.True(t, IsType(outer, ErrorTypeConnection))
	assert.Nil(t, Wrap(nil, ErrorTypeData, "nothing"))
}

func TestIsTypeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("call: %w", New(ErrorTypeValidation, "Two inputs required."))
	assert.True(t, IsFatal(err))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(New(ErrorTypeCapability, "type 77 is not supported")))
}

func TestIDDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "Input must be a structure.")
	assert.Equal(t, "", err.ID())
	err.WithID("qdbc:inputNotStruct").WithDetail("argument", 0)
	assert.Equal(t, "qdbc:inputNotStruct", err.ID())
	assert.Equal(t, 0, err.Details["argument"])
	assert.NotEmpty(t, err.Stack)
}
