package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ClassifyHTTPStatus("test", tt.status, "body")
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Contains(t, err.Error(), "body")
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.True(t, IsTransient(fmt.Errorf("call: %w", Transient("x", 0, errors.New("reset")))))
	assert.False(t, IsTransient(Permanent("x", 0, ErrEmptyCredential)))
	assert.True(t, errors.Is(Permanent("x", 0, ErrEmptyCredential), ErrEmptyCredential))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("x", nil))
	assert.ErrorIs(t, classify("x", context.Canceled), context.Canceled)

	err := classify("x", errors.New("error, status code: 429, message: slow down"))
	assert.True(t, IsTransient(err))
	assert.Equal(t, 429, StatusCode(err))

	err = classify("x", errors.New("error, status code: 401, message: bad key"))
	assert.False(t, IsTransient(err))
	assert.Equal(t, 401, StatusCode(err))

	assert.False(t, IsTransient(classify("x", errors.New("invalid json"))))
}
