package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/contentanonymity/backend/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrValidation, http.StatusUnprocessableEntity},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{ErrTwoFactorNeeded, http.StatusUnauthorized},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code.StatusCode())
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := ValidationError("pricing", "must be one of free, freemium, paid")
	assert.Equal(t, "VALIDATION_ERROR: must be one of free, freemium, paid (field: pricing)", err.Error())

	nf := NotFound("article")
	assert.Equal(t, "article not found", nf.Message)
	assert.Equal(t, http.StatusNotFound, nf.Status)
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", TwoFactorRequired())
	assert.True(t, Is(wrapped, ErrTwoFactorNeeded))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(fmt.Errorf("plain"), ErrNotFound))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil, "article"))

	nf := FromError(fmt.Errorf("lookup: %w", repository.ErrNotFound), "article")
	assert.Equal(t, http.StatusNotFound, nf.Status)
	assert.Equal(t, "article not found", nf.Message)

	dup := FromError(repository.ErrDuplicate, "tool")
	assert.Equal(t, http.StatusConflict, dup.Status)

	bad := FromError(repository.ErrInvalidInput, "tool")
	assert.Equal(t, http.StatusBadRequest, bad.Status)

	api := Forbidden("nope")
	assert.Same(t, api, FromError(fmt.Errorf("wrapped: %w", api), "x"))

	internal := FromError(fmt.Errorf("disk on fire"), "niche")
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, "disk on fire", internal.Details)
}
