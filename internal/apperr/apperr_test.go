package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{BadRequest, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{NotFound, http.StatusNotFound},
		{Conflict, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := New(tc.kind, "boom")
		assert.Equal(t, tc.want, err.Status())
		assert.Equal(t, tc.want, StatusFor(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(Internal, "failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "underlying")
}

func TestStatusForPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
}
