package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeStaleBalance, http.StatusConflict},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeExceedsBalance, http.StatusUnprocessableEntity},
		{ErrCodeCurrencyMismatch, http.StatusUnprocessableEntity},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		domain string
		wire   string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"INVALID_TRANSITION", ErrCodeInvalidTransition},
		{"EXCEEDS_BALANCE", ErrCodeExceedsBalance},
		{"CURRENCY_MISMATCH", ErrCodeCurrencyMismatch},
		{"STALE_BALANCE", ErrCodeStaleBalance},
		{"ERR_NOT_FOUND", ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.Equal(t, tt.wire, NormalizeErrorCode(tt.domain))
		})
	}
}

func TestDomainCodesRoundTripToStatuses(t *testing.T) {
	// every mapped domain code must land on a concrete HTTP status
	for domainCode, wireCode := range DomainErrorCodeMapping {
		status := GetHTTPStatus(wireCode)
		assert.NotZero(t, status, "no status for %s -> %s", domainCode, wireCode)
	}
}
