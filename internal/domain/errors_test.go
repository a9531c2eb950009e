package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeNotFound, "session not found")
	assert.Equal(t, "[NOT_FOUND] session not found", err.Error())

	cause := errors.New("boom")
	wrapped := NewDomainErrorWithCause(ErrCodeUnavailable, "store unavailable", cause)
	assert.Equal(t, "[UNAVAILABLE] store unavailable: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestDomainError_IsMatchesSentinel(t *testing.T) {
	copyErr := NewDomainErrorWithCause(ErrCodeNotFound, ErrSessionNotFound.Message, errors.New("id abc"))
	assert.True(t, errors.Is(copyErr, ErrSessionNotFound))
	assert.True(t, errors.Is(fmt.Errorf("lookup: %w", ErrSessionNotFound), ErrSessionNotFound))
	assert.False(t, errors.Is(ErrSessionNotFound, ErrIndexNotFound))
}
