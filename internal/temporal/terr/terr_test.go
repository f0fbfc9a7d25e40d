package terr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndIs(t *testing.T) {
	t.Parallel()

	err := New(InvalidArgValue, "division by %s", "zero")
	assert.EqualError(t, err, "INVALID_ARG_VALUE: division by zero")
	assert.True(t, Is(err, InvalidArgValue))
	assert.False(t, Is(err, InternalError))
}

func TestIsOnPlainError(t *testing.T) {
	t.Parallel()
	assert.False(t, Is(assertPlainError{}, InvalidArgType))
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "plain" }

func TestKindString(t *testing.T) {
	t.Parallel()
	cases := map[Kind]string{
		InvalidArgType:      "INVALID_ARG_TYPE",
		InvalidArgValue:     "INVALID_ARG_VALUE",
		MemoryAllocError:    "MEMORY_ALLOC_ERROR",
		InternalError:       "INTERNAL_ERROR",
		OperationCancelled:  "OPERATION_CANCELLED",
		Kind(99):            "UNKNOWN_ERROR",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
