package errorhandler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleError_UserActionable(t *testing.T) {
	err := NewConfigurationError(nil, "That channel does not exist.")

	msg, actionable := HandleError(err)

	assert.True(t, actionable)
	assert.Equal(t, "That channel does not exist.", msg)
}

func TestHandleError_InternalErrorsAreNotLeaked(t *testing.T) {
	err := NewDatabaseError(errors.New("dial tcp: connection refused"), "saving record")

	msg, actionable := HandleError(err)

	assert.False(t, actionable)
	assert.NotContains(t, msg, "dial tcp")
}

func TestHandleError_WrappedCustomError(t *testing.T) {
	inner := NewScanError(errors.New("gateway down"), "listing guild members")
	wrapped := fmt.Errorf("scan failed: %w", inner)

	msg, actionable := HandleError(wrapped)

	assert.False(t, actionable)
	assert.Contains(t, msg, "unexpected error")
}

func TestHandleError_PlainError(t *testing.T) {
	msg, actionable := HandleError(errors.New("boom"))

	assert.False(t, actionable)
	assert.NotContains(t, msg, "boom")
}

func TestCustomError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := NewDatabaseError(inner, "saving record")

	assert.ErrorIs(t, err, inner)
	assert.True(t, IsDatabaseError(err))
	assert.False(t, IsDatabaseError(errors.New("other")))
}
