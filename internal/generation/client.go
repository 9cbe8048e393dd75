// Package generation drives image generation tasks through the external
// generation service, from dispatch through polling to result persistence.
// Every task is funded by a credit reservation that is confirmed on success
// and cancelled on failure.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/virtustage/creditcore/internal/config"
)

// StatusFlag is the numeric state reported by the external service.
type StatusFlag int

const (
	FlagRunning          StatusFlag = 0
	FlagSucceeded        StatusFlag = 1
	FlagCreateFailed     StatusFlag = 2
	FlagGenerationFailed StatusFlag = 3
)

// DispatchInput is the opaque generation payload plus the dimensions the
// finalized result must match.
type DispatchInput struct {
	Prompt         string
	SourceImageURL string
	AspectHint     string
	TargetWidth    int
	TargetHeight   int
}

// DispatchResult is the outcome of a dispatch call. Exactly one of TaskID
// and ResultURL is set: a TaskID means the task is running and must be
// polled, a ResultURL means the service completed synchronously.
type DispatchResult struct {
	TaskID    string
	ResultURL string
}

// Status is the outcome of a status check.
type Status struct {
	Flag      StatusFlag
	ResultURL string
}

// Client is the adapter to the external generation service.
type Client interface {
	Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error)
	CheckStatus(ctx context.Context, externalTaskID string) (*Status, error)
}

// httpClient implements Client over the service's HTTP API.
type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a Client for the configured generation service.
func NewHTTPClient(cfg *config.GenerationConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type dispatchRequest struct {
	Prompt         string `json:"prompt"`
	SourceImageURL string `json:"source_image_url"`
	AspectHint     string `json:"aspect_hint,omitempty"`
}

func (c *httpClient) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	body, err := json.Marshal(dispatchRequest{
		Prompt:         input.Prompt,
		SourceImageURL: input.SourceImageURL,
		AspectHint:     input.AspectHint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode dispatch response: %w", err)
	}

	if resp.TaskID != "" {
		return &DispatchResult{TaskID: resp.TaskID}, nil
	}

	// Direct-complete path: the service returned a finished result instead
	// of a task handle.
	if url := extractResultURL(raw); url != "" {
		return &DispatchResult{ResultURL: url}, nil
	}

	return nil, fmt.Errorf("dispatch response contained neither task id nor result url")
}

func (c *httpClient) CheckStatus(ctx context.Context, externalTaskID string) (*Status, error) {
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/tasks/"+externalTaskID, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Flag StatusFlag `json:"flag"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	return &Status{Flag: resp.Flag, ResultURL: extractResultURL(raw)}, nil
}

func (c *httpClient) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read generation service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation service returned %d: %s", resp.StatusCode, raw)
	}

	return raw, nil
}

// extractResultURL is the single place that tolerates the upstream's
// inconsistent result-field naming. Everything past this function sees one
// well-defined schema.
func extractResultURL(raw []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}

	for _, key := range []string{"result_url", "image_url", "url", "output_url"} {
		if v, ok := fields[key]; ok {
			var url string
			if err := json.Unmarshal(v, &url); err == nil && url != "" {
				return url
			}
		}
	}

	// Some responses nest the result under "output".
	if v, ok := fields["output"]; ok {
		var nested struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(v, &nested); err == nil && nested.URL != "" {
			return nested.URL
		}
	}

	return ""
}
