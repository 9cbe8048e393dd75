package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtustage/creditcore/internal/config"
)

func newTestClient(serverURL string) Client {
	return NewHTTPClient(&config.GenerationConfig{
		BaseURL:        serverURL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
	})
}

func TestHTTPClient_Dispatch(t *testing.T) {
	t.Run("task handle response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/tasks", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "studio portrait", req["prompt"])

			//nolint:errcheck // test server
			json.NewEncoder(w).Encode(map[string]string{"task_id": "ext-42"})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Dispatch(context.Background(), DispatchInput{
			Prompt:         "studio portrait",
			SourceImageURL: "https://img.example.com/src.png",
		})

		assert.NoError(t, err)
		assert.Equal(t, "ext-42", result.TaskID)
		assert.Empty(t, result.ResultURL)
	})

	t.Run("direct-complete response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			//nolint:errcheck // test server
			json.NewEncoder(w).Encode(map[string]string{"image_url": "https://up.example.com/out.png"})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Dispatch(context.Background(), DispatchInput{Prompt: "x"})

		assert.NoError(t, err)
		assert.Empty(t, result.TaskID)
		assert.Equal(t, "https://up.example.com/out.png", result.ResultURL)
	})

	t.Run("upstream error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Dispatch(context.Background(), DispatchInput{Prompt: "x"})

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("response with neither handle nor result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			//nolint:errcheck // test server
			json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
		}))
		defer server.Close()

		result, err := newTestClient(server.URL).Dispatch(context.Background(), DispatchInput{Prompt: "x"})

		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestHTTPClient_CheckStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/tasks/ext-42", r.URL.Path)

		//nolint:errcheck // test server
		json.NewEncoder(w).Encode(map[string]any{
			"flag":       1,
			"result_url": "https://up.example.com/out.png",
		})
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).CheckStatus(context.Background(), "ext-42")

	assert.NoError(t, err)
	assert.Equal(t, FlagSucceeded, status.Flag)
	assert.Equal(t, "https://up.example.com/out.png", status.ResultURL)
}

func TestExtractResultURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"result_url field", `{"result_url":"https://a/x.png"}`, "https://a/x.png"},
		{"image_url field", `{"image_url":"https://a/x.png"}`, "https://a/x.png"},
		{"url field", `{"url":"https://a/x.png"}`, "https://a/x.png"},
		{"output_url field", `{"output_url":"https://a/x.png"}`, "https://a/x.png"},
		{"nested output object", `{"output":{"url":"https://a/x.png"}}`, "https://a/x.png"},
		{"first known field wins", `{"result_url":"https://a/1.png","url":"https://a/2.png"}`, "https://a/1.png"},
		{"empty string ignored", `{"result_url":"","url":"https://a/x.png"}`, "https://a/x.png"},
		{"no result field", `{"flag":0}`, ""},
		{"non-string value ignored", `{"url":42}`, ""},
		{"invalid json", `not json`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractResultURL([]byte(tt.raw)))
		})
	}
}
