// Package api provides the HTTP request block.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/you112ef/sim-sub002/pkg/models"
)

type APIBlock struct {
	id     string
	config Config
}

// Config defines the configuration for HTTP request blocks.
type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout"` // seconds
}

func NewAPIBlock(id string, config map[string]any) (*APIBlock, error) {
	cfg := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: 30,
	}

	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	cfg.URL = url

	if method, ok := config["method"].(string); ok {
		cfg.Method = strings.ToUpper(method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if strVal, ok := v.(string); ok {
				cfg.Headers[k] = strVal
			}
		}
	}

	if body, ok := config["body"].(string); ok {
		cfg.Body = body
	}

	if timeout, ok := config["timeout"].(float64); ok {
		cfg.Timeout = int(timeout)
	}

	return &APIBlock{id: id, config: cfg}, nil
}

func (b *APIBlock) ID() string {
	return b.id
}

func (b *APIBlock) Type() string {
	return models.BlockTypeAPI
}

func (b *APIBlock) Execute(ctx context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
	client := &http.Client{Timeout: time.Duration(b.config.Timeout) * time.Second}

	var bodyReader io.Reader
	if b.config.Body != "" {
		bodyReader = strings.NewReader(b.config.Body)
	}

	req, err := http.NewRequestWithContext(ctx, b.config.Method, b.config.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range b.config.Headers {
		req.Header.Set(k, v)
	}

	if b.config.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if execCtx.Logger != nil {
		execCtx.Logger.Debug("Executing HTTP request", "method", b.config.Method, "url", b.config.URL)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any = string(raw)

	var parsed any
	if json.Unmarshal(raw, &parsed) == nil {
		body = parsed
	}

	output := map[string]any{
		"status":  float64(resp.StatusCode),
		"headers": flattenHeaders(resp.Header),
		"body":    body,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Status: resp.StatusCode, Output: output}
	}

	return &models.BlockResult{Output: output}, nil
}

// StatusError reports a non-2xx/3xx response while preserving the decoded
// payload for error-handle consumers.
type StatusError struct {
	Status int
	Output map[string]any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request returned status %d", e.Status)
}

func flattenHeaders(headers http.Header) map[string]any {
	out := make(map[string]any, len(headers))
	for k := range headers {
		out[k] = headers.Get(k)
	}

	return out
}
