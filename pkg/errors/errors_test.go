package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType_FollowsWrapChain(t *testing.T) {
	base := NewNotFoundError("restaurant r-1 not found")
	wrapped := fmt.Errorf("loading status: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeValidation))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeNotFound))
}

func TestAppError_Message(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewInternalError("failed to list restaurants", cause)

	assert.Equal(t, "INTERNAL: failed to list restaurants: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "VALIDATION: location required", NewValidationError("location required").Error())
}
