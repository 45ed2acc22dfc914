// Package genai wraps the structured generation endpoint: prompt in,
// schema-conformant JSON out. The engine treats the model as a black box that
// either returns output matching the supplied schema or fails; transport
// retries live here, behind the generation boundary, and validation failures
// are never retried.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crm-engine/internal/common/config"
	"crm-engine/internal/common/errors"
	"crm-engine/internal/common/logger"

	"github.com/xeipuuv/gojsonschema"
)

// Generator is the interface consumed by the scoring orchestrator.
type Generator interface {
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, schema map[string]interface{}) (json.RawMessage, error)
}

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client
	logger      logger.Logger
}

func New(cfg config.AIConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		// No client-level timeout; the per-call context carries the deadline.
		httpClient: &http.Client{},
		logger:     log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

type generateRequest struct {
	Model          string                 `json:"model,omitempty"`
	System         string                 `json:"system"`
	Prompt         string                 `json:"prompt"`
	ResponseSchema map[string]interface{} `json:"response_schema"`
	Temperature    float64                `json:"temperature"`
}

type generateResponse struct {
	Output json.RawMessage `json:"output"`
}

// GenerateStructured posts the prompts and schema to the generation endpoint
// and returns the raw output after validating it against the same schema.
// Transport errors are retried with exponential backoff; schema violations
// fail immediately with AI_VALIDATION_FAILED.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, schema map[string]interface{}) (json.RawMessage, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:          c.model,
		System:         systemPrompt,
		Prompt:         userPrompt,
		ResponseSchema: schema,
		Temperature:    c.temperature,
	})
	if err != nil {
		return nil, errors.NewAICallFailedError(err)
	}

	body, err := c.post(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewAIValidationFailedError(fmt.Sprintf("malformed response envelope: %v", err))
	}
	if len(resp.Output) == 0 {
		return nil, errors.NewAIValidationFailedError("response envelope missing output")
	}

	if err := validateAgainstSchema(resp.Output, schema); err != nil {
		return nil, err
	}

	return resp.Output, nil
}

func (c *Client) post(ctx context.Context, reqBody []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.NewAITimeoutError()
			}
		}

		// The request body reader is consumed per attempt, so the request is
		// rebuilt each time.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/generate", bytes.NewReader(reqBody))
		if err != nil {
			return nil, errors.NewAICallFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.NewAITimeoutError()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK && readErr == nil {
			return body, nil
		}
		if readErr != nil {
			lastErr = readErr
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}

		c.logger.Warn("generation attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		})
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewAITimeoutError()
	}
	return nil, errors.NewAICallFailedError(lastErr)
}

// validateAgainstSchema checks output conformance and aggregates every
// violation into one error message.
func validateAgainstSchema(output json.RawMessage, schema map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(output),
	)
	if err != nil {
		return errors.NewAIValidationFailedError(fmt.Sprintf("schema validation error: %v", err))
	}
	if !result.Valid() {
		details := ""
		for i, desc := range result.Errors() {
			if i > 0 {
				details += "; "
			}
			details += desc.String()
		}
		return errors.NewAIValidationFailedError(details)
	}
	return nil
}
