package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(CodeInvalidParam, "x").HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, New(CodeCredentialInvalid, "x").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, New(CodeProviderNotFound, "x").HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, New(CodeLLMCallFailed, "x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(CodeDatabaseError, "x").HTTPStatus)
}

func TestAsAppErrorUnwrapsChain(t *testing.T) {
	inner := Wrap(fmt.Errorf("dial tcp"), CodeLLMProviderError, "vendor unreachable")
	wrapped := fmt.Errorf("generate: %w", inner)

	assert.True(t, IsAppError(wrapped))
	got := AsAppError(wrapped)
	assert.Equal(t, CodeLLMProviderError, got.Code)
	assert.Contains(t, got.Error(), "dial tcp")

	plain := AsAppError(fmt.Errorf("plain"))
	assert.Equal(t, CodeUnknown, plain.Code)
}
