package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	entries []map[string]interface{}
}

func (c *captureLogger) Error(_ string, fields map[string]interface{}) {
	c.entries = append(c.entries, fields)
}

// ==========================
// Retry Routing
// ==========================

func TestShouldRetry_TransientFailuresRetryWhileBudgetRemains(t *testing.T) {
	transient := []*StandardError{
		NewAICallFailedError(errors.New("upstream 503")),
		NewQueryExecutionFailedError("threads-for-lead", errors.New("connection reset")),
		NewLeadUpdateFailedError("lead-1", errors.New("deadlock")),
		NewSearchQueryFailedError(errors.New("index unavailable")),
	}
	for _, stdErr := range transient {
		assert.True(t, shouldRetry(stdErr, 3), "code %s should retry", stdErr.Code)
	}
}

func TestShouldRetry_NotFoundIsTerminal(t *testing.T) {
	assert.False(t, shouldRetry(NewLeadNotFoundError("lead-1"), 3))
	assert.False(t, shouldRetry(NewThreadNotFoundError("thread-1"), 3))
	assert.False(t, shouldRetry(NewAIValidationFailedError("missing score field"), 3))
}

func TestShouldRetry_ExhaustedBudgetIsTerminal(t *testing.T) {
	assert.False(t, shouldRetry(NewAICallFailedError(errors.New("upstream 503")), 0))
}

// ==========================
// Error Normalization
// ==========================

func TestNormalizeError_StandardErrorPassthrough(t *testing.T) {
	h := NewErrorHandler(&captureLogger{})
	stdErr := NewAICallFailedError(errors.New("boom"))

	assert.Same(t, stdErr, h.normalizeError(stdErr))
}

func TestNormalizeError_WrapsUnknownErrors(t *testing.T) {
	h := NewErrorHandler(&captureLogger{})

	stdErr := h.normalizeError(errors.New("something unexpected"))
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "something unexpected", stdErr.Details)
}
