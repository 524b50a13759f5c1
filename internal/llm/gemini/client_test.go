package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient("test-key", srv.URL+"/v1beta/models/gemini-1.5-flash:generateContent", timeout)
	require.NoError(t, err)
	return c
}

func TestCompleteSendsPromptAndReadsFirstCandidate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		contents := body["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Equal(t, "Summarize this", parts[0].(map[string]any)["text"])
		cfg := body["generationConfig"].(map[string]any)
		assert.Equal(t, 0.1, cfg["temperature"])
		assert.Equal(t, float64(2048), cfg["maxOutputTokens"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  A short summary. "}]}}]}`))
	}, time.Second)

	out, err := c.Complete(context.Background(), "Summarize this")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		target  error
		retries bool
	}{
		{name: "server error", status: 503, body: `{"error":{"code":503,"message":"overloaded"}}`, target: llm.ErrProvider, retries: true},
		{name: "bad key", status: 400, body: `{"error":{"code":400,"message":"API key not valid"}}`, target: llm.ErrProvider},
		{name: "no candidates", status: 200, body: `{"candidates":[]}`, target: llm.ErrMalformedResponse},
		{name: "not json", status: 200, body: `<html>`, target: llm.ErrMalformedResponse},
		{name: "blocked", status: 200, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, target: llm.ErrProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, time.Second)

			_, err := c.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.NotContains(t, err.Error(), "test-key")
			var pe *llm.ProviderError
			if tc.retries {
				require.ErrorAs(t, err, &pe)
				assert.True(t, pe.Retryable())
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}, 20*time.Millisecond)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrTimeout)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ", "https://example.com/generate", time.Second)
	assert.Error(t, err)
}
