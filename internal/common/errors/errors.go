// Package errors provides standardized error handling for the lead engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeLeadNotFound    ErrorCode = "LEAD_NOT_FOUND"
	ErrCodeThreadNotFound  ErrorCode = "THREAD_NOT_FOUND"
	ErrCodeMeetingNotFound ErrorCode = "MEETING_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeSuggestionInsertFailed   ErrorCode = "SUGGESTION_INSERT_FAILED"
	ErrCodeDuplicateSuggestion      ErrorCode = "DUPLICATE_SUGGESTION"
	ErrCodeLeadUpdateFailed         ErrorCode = "LEAD_UPDATE_FAILED"

	ErrCodeAICallFailed       ErrorCode = "AI_CALL_FAILED"
	ErrCodeAITimeout          ErrorCode = "AI_TIMEOUT"
	ErrCodeAIValidationFailed ErrorCode = "AI_VALIDATION_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeInvalidJobInput ErrorCode = "INVALID_JOB_INPUT"
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

// ==========================
// 2. Error Constructors
// ==========================

// NewLeadNotFoundError creates a non-retryable lead lookup error. Soft-deleted
// leads are reported the same way as absent ones.
func NewLeadNotFoundError(leadID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadNotFound,
		Message:   "Lead not found or deleted",
		Details:   fmt.Sprintf("leadId: %s", leadID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewThreadNotFoundError creates a non-retryable thread lookup error.
func NewThreadNotFoundError(threadID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeThreadNotFound,
		Message:   "Thread not found or deleted",
		Details:   fmt.Sprintf("threadId: %s", threadID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMeetingNotFoundError creates a non-retryable meeting lookup error.
func NewMeetingNotFoundError(meetingID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMeetingNotFound,
		Message:   "Meeting not found or deleted",
		Details:   fmt.Sprintf("meetingId: %s", meetingID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", queryName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSuggestionInsertFailedError creates a retryable suggestion insert error.
func NewSuggestionInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSuggestionInsertFailed,
		Message:   "Suggestion insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateSuggestionError creates a non-retryable duplicate suggestion error.
// Raised when the dedup-key unique index rejects a concurrent insert.
func NewDuplicateSuggestionError(dedupKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSuggestion,
		Message:   "Suggestion already exists",
		Details:   fmt.Sprintf("dedupKey: %s", dedupKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLeadUpdateFailedError creates a retryable lead update error.
func NewLeadUpdateFailedError(leadID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLeadUpdateFailed,
		Message:   "Lead update failed",
		Details:   fmt.Sprintf("leadId: %s, error: %s", leadID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAICallFailedError creates a retryable AI generation error.
func NewAICallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAICallFailed,
		Message:   "AI generation API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAITimeoutError creates a retryable AI timeout error.
func NewAITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAITimeout,
		Message:   "AI generation timeout",
		Details:   "Generation call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAIValidationFailedError creates a non-retryable schema conformance error.
// The engine never retries validation failures; callers decide what to do.
func NewAIValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAIValidationFailed,
		Message:   "AI output failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Thread search query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidJobInputError creates a non-retryable error for malformed or
// incomplete job variables. Re-delivering the same payload cannot succeed.
func NewInvalidJobInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for a given error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSuggestionInsertFailed,
		ErrCodeLeadUpdateFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeAICallFailed:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout, ErrCodeAITimeout:
		return 1

	default:
		return 0 // Not-found and validation errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// CodeOf extracts the ErrorCode from err, or empty string if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeLeadNotFound, ErrCodeThreadNotFound, ErrCodeMeetingNotFound:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "AI"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "SUGGESTION") || strings.Contains(codeStr, "LEAD_UPDATE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	default:
		return "OTHER"
	}
}
