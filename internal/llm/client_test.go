package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKnownProviders(t *testing.T) {
	c, err := New("gemini", "key", "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	c, err = New("mock", "", "")
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())

	_, err = New("frontier", "", "")
	assert.Error(t, err)
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.0-flash")
	c.baseURL = srv.URL

	resp, err := c.Complete(context.Background(), CompletionRequest{Prompt: "oi", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)
}

func TestGeminiCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient("test-key", "gemini-2.0-flash")
	c.baseURL = srv.URL

	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "oi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
