// Package errors provides standardized error handling for the matching engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBatchLoadFailed ErrorCode = "BATCH_LOAD_FAILED"
	ErrCodePairScoreFailed ErrorCode = "PAIR_SCORE_FAILED"

	ErrCodeAIUnavailable    ErrorCode = "AI_UNAVAILABLE"
	ErrCodeAIRequestFailed  ErrorCode = "AI_REQUEST_FAILED"
	ErrCodeAIResponseFailed ErrorCode = "AI_RESPONSE_INVALID"

	ErrCodeCacheReadFailed  ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWriteFailed ErrorCode = "CACHE_WRITE_FAILED"

	ErrCodeRecordInsertFailed     ErrorCode = "RECORD_INSERT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// New creates a StandardError with the current timestamp.
func New(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now(),
	}
}

// NewBatchLoadFailed marks the fatal case where the user or product list
// cannot be obtained at all.
func NewBatchLoadFailed(details string) *StandardError {
	return New(ErrCodeBatchLoadFailed, "failed to load batch inputs", details, true)
}
