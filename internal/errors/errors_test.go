package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyStatusCodes(t *testing.T) {
	cases := []struct {
		err    *APIError
		status int
	}{
		{ValidationError("content", "content is required"), http.StatusBadRequest},
		{Unauthorized("invalid token"), http.StatusUnauthorized},
		{Forbidden("not a member"), http.StatusForbidden},
		{NotFound("conversation"), http.StatusNotFound},
		{Conflict("email already registered"), http.StatusConflict},
		{Upstream("spam classifier", nil), http.StatusBadGateway},
		{InternalError("boom", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status, tc.err.Code)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := stderrors.New("connection reset")
	apiErr := From(cause)
	require.NotNil(t, apiErr)
	assert.Equal(t, ErrInternalError, apiErr.Code)
	assert.ErrorIs(t, apiErr, cause)

	wrapped := fmt.Errorf("send: %w", NotFound("conversation"))
	assert.Equal(t, ErrNotFound, From(wrapped).Code)
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.Nil(t, From(nil))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: name is required (field: name)", ValidationError("name", "name is required").Error())
	assert.Equal(t, "NOT_FOUND: user not found", NotFound("user").Error())
}
