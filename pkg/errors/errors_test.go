package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	plain := NewNotFoundError("appointment not found")
	assert.Equal(t, "NOT_FOUND: appointment not found", plain.Error())

	wrapped := NewExternalError("bridge call failed", errors.New("connection reset"))
	assert.Equal(t, "EXTERNAL: bridge call failed: connection reset", wrapped.Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("gone")))
	assert.False(t, IsNotFound(NewConflictError("busy")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))

	// Detection survives wrapping.
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundError("gone"))
	assert.True(t, IsNotFound(wrapped))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewExternalError("bridge call failed", cause)
	assert.ErrorIs(t, err, cause)
}
