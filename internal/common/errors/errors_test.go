package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := NewNoSlotsAvailableError("Acacia Breeze")
	assert.Equal(t, ErrCodeNoSlotsAvailable, CodeOf(err))

	wrapped := fmt.Errorf("approve assignment: %w", err)
	assert.Equal(t, ErrCodeNoSlotsAvailable, CodeOf(wrapped))

	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain error")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestHasCode(t *testing.T) {
	err := NewInvalidTransitionError("booked", "successful")
	assert.True(t, HasCode(err, ErrCodeInvalidTransition))
	assert.False(t, HasCode(err, ErrCodeNotFound))
}

func TestDomainErrorMessage(t *testing.T) {
	err := NewNotFoundError("application", "app-42")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Details, "app-42")
	assert.False(t, err.Retryable)

	store := NewStoreFailureError(fmt.Errorf("connection reset"))
	assert.True(t, store.Retryable)
}
