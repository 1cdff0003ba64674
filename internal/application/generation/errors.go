package generation

import (
	"context"
	"errors"
	"net/http"

	"z-novel-context-api/internal/infrastructure/llm"
	apperrors "z-novel-context-api/pkg/errors"
)

// ToAppError 把模型调用错误映射为应用错误
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call interrupted")
	case errors.Is(err, llm.ErrProviderNotConfigured), errors.Is(err, llm.ErrUnknownVendor):
		return apperrors.Wrap(err, apperrors.CodeProviderNotFound, "model provider not found")
	case errors.Is(err, llm.ErrEmptyCredential):
		return apperrors.Wrap(err, apperrors.CodeCredentialMissing, "credential missing")
	}

	switch llm.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Wrap(err, apperrors.CodeCredentialInvalid, "credential rejected by provider")
	}

	if llm.IsTransient(err) {
		return apperrors.Wrap(err, apperrors.CodeLLMRetryExceeded, "llm provider unavailable after retries")
	}
	return apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call failed")
}
