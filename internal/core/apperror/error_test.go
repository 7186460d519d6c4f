package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_UnwrapsWrappedErrors(t *testing.T) {
	base := NewInsufficientStock("p-1", "200.0000", "150.0000")
	wrapped := fmt.Errorf("allocate line 1: %w", base)

	assert.True(t, Is(wrapped, CodeInsufficientStock))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "200.0000", appErr.Details["required"])
	assert.Equal(t, "150.0000", appErr.Details["available"])
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestWithCause_KeepsChain(t *testing.T) {
	cause := errors.New("driver failure")
	err := NewInternal(nil).WithCause(cause).WithDetail("op", "commit")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "commit", err.Details["op"])
	assert.Contains(t, err.Error(), "caused by: driver failure")
}

func TestNewInvalidStateTransition(t *testing.T) {
	err := NewInvalidStateTransition("t-1", "received", "cancel")

	assert.Equal(t, CodeInvalidStateTransition, err.Code)
	assert.Equal(t, "received", err.Details["from"])
	assert.Equal(t, "cancel", err.Details["action"])
}
