package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(CodeInvalidState, "cannot cancel a settled invoice")
	assert.Equal(t, "cannot cancel a settled invoice", err.Error())
	assert.Equal(t, CodeInvalidState, err.Code)
}

func TestIsCode(t *testing.T) {
	err := NewValidationError("amount must be positive")

	assert.True(t, IsCode(err, CodeValidation))
	assert.False(t, IsCode(err, CodeInvalidState))
	assert.False(t, IsCode(nil, CodeValidation))
	assert.False(t, IsCode(errors.New("plain error"), CodeValidation))
}

func TestIsCode_Wrapped(t *testing.T) {
	inner := NewCurrencyMismatchError("note currency differs from invoice")
	wrapped := fmt.Errorf("validating association: %w", inner)

	assert.True(t, IsCode(wrapped, CodeCurrencyMismatch))
}

func TestCommonErrors(t *testing.T) {
	assert.True(t, IsCode(ErrNotFound, CodeNotFound))
	assert.True(t, IsCode(ErrStaleBalance, CodeStaleBalance))
	assert.True(t, IsCode(ErrConcurrencyConflict, CodeStaleBalance))
}
