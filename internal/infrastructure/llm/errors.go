package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
)

var (
	// ErrEmptyCredential 未配置 API Key
	ErrEmptyCredential = errors.New("empty credential")
	// ErrUnknownVendor 未知厂商
	ErrUnknownVendor = errors.New("unknown vendor")

	errEmptyMessages = errors.New("empty messages")
	errInvalidProxy  = errors.New("invalid proxy address")
)

// statusPattern 从 SDK 错误信息中提取 HTTP 状态码
var statusPattern = regexp.MustCompile(`(?i)status(?:\s*code)?[\s:=]*(\d{3})`)

// TransientError 可重试的厂商错误（网络、超时、429、5xx）
type TransientError struct {
	Vendor     string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Vendor, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Vendor, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError 不可重试的厂商错误（凭证、参数）
type PermanentError struct {
	Vendor     string
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: request rejected (status %d): %v", e.Vendor, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request rejected: %v", e.Vendor, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// Transient 构造可重试错误
func Transient(vendor string, status int, err error) error {
	return &TransientError{Vendor: vendor, StatusCode: status, Err: err}
}

// Permanent 构造不可重试错误
func Permanent(vendor string, status int, err error) error {
	return &PermanentError{Vendor: vendor, StatusCode: status, Err: err}
}

// IsTransient 判断错误是否可重试
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// StatusCode 返回错误携带的 HTTP 状态码，没有时返回 0
func StatusCode(err error) int {
	var te *TransientError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.StatusCode
	}
	return 0
}

// ClassifyHTTPStatus 按 HTTP 状态码构造错误
func ClassifyHTTPStatus(vendor string, status int, body string) error {
	err := errors.New(http.StatusText(status))
	if body != "" {
		err = fmt.Errorf("%s: %s", http.StatusText(status), body)
	}
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500 {
		return Transient(vendor, status, err)
	}
	return Permanent(vendor, status, err)
}

// classify 把 SDK 返回的错误归类；调用方 ctx 结束的错误原样返回
func classify(vendor string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	var pe *PermanentError
	if errors.As(err, &te) || errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Transient(vendor, 0, err)
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if status, convErr := strconv.Atoi(m[1]); convErr == nil && status >= 400 {
			classified := ClassifyHTTPStatus(vendor, status, "")
			if IsTransient(classified) {
				return Transient(vendor, status, err)
			}
			return Permanent(vendor, status, err)
		}
	}
	return Permanent(vendor, 0, err)
}
