package genai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"score"},
	"properties": map[string]interface{}{
		"score": map[string]interface{}{
			"type":    "integer",
			"minimum": 0,
			"maximum": 100,
		},
	},
}

func newTestClient(t *testing.T, baseURL string, maxRetries int) *Client {
	return New(config.AIConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		MaxRetries: maxRetries,
		Timeout:    5000,
	}, logger.NewTestLogger(t))
}

func TestGenerateStructured_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"output": {"score": 85}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	out, err := c.GenerateStructured(context.Background(), "system", "user", testSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 85}`, string(out))
}

func TestGenerateStructured_SchemaViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": {"score": 250}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GenerateStructured(context.Background(), "system", "user", testSchema)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAIValidationFailed, errors.CodeOf(err))
}

func TestGenerateStructured_MissingOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GenerateStructured(context.Background(), "system", "user", testSchema)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAIValidationFailed, errors.CodeOf(err))
}

func TestGenerateStructured_RetriesTransportErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"output": {"score": 40}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	out, err := c.GenerateStructured(context.Background(), "system", "user", testSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score": 40}`, string(out))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGenerateStructured_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.GenerateStructured(context.Background(), "system", "user", testSchema)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAICallFailed, errors.CodeOf(err))
}

func TestGenerateStructured_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"output": {"score": 10}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.GenerateStructured(ctx, "system", "user", testSchema)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAITimeout, errors.CodeOf(err))
}
