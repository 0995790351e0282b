package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "server_error error (code 502): bad gateway", New(ErrorTypeServerError, 502, "bad gateway").Error())
	assert.Equal(t, "parsing error: empty document", New(ErrorTypeParsing, 0, "empty document").Error())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrorTypeNetwork, cause, "request failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeNetwork, TypeOf(err))
	assert.Equal(t, ErrorTypeNetwork, TypeOf(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(cause))
}

func TestIsWalksNestedClassifications(t *testing.T) {
	last := New(ErrorTypeServerError, 503, "unavailable")
	all := &Error{Type: ErrorTypeAllMirrorsFailed, Message: "3 mirrors tried", Err: last}

	assert.True(t, Is(all, ErrorTypeAllMirrorsFailed))
	assert.True(t, Is(all, ErrorTypeServerError))
	assert.False(t, Is(all, ErrorTypeNetwork))
	assert.False(t, Is(nil, ErrorTypeNetwork))
}

func TestFromStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{404, ErrorTypeNotFound},
		{410, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{403, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FromStatusCode(tt.code), "status %d", tt.code)
	}
}
