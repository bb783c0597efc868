package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moonpour/tarotbar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, New("test", srv.URL, WithHTTPClient(srv.Client()))
}

func TestComplete_Success(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string

	_, p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": `{"ok": true}`}, "finish_reason": "stop"},
			},
		})
	})

	resp, err := p.Complete(context.Background(), tarotbar.ProviderRequest{
		Auth:       tarotbar.Auth{APIKey: "sk-test"},
		Model:      "test-model",
		Messages:   []tarotbar.Message{{Role: "user", Content: "draw a card"}},
		MaxTokens:  tarotbar.IntPtr(100),
		JSONObject: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "cmpl-1", resp.ID)
	assert.Equal(t, `{"ok": true}`, resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotBody["model"])
	rf, ok := gotBody["response_format"].(map[string]any)
	require.True(t, ok, "response_format must be set for JSON mode")
	assert.Equal(t, "json_object", rf["type"])
}

func TestComplete_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, tarotbar.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, tarotbar.ErrAuthFailed},
		{"forbidden", http.StatusForbidden, tarotbar.ErrAuthFailed},
		{"bad request", http.StatusBadRequest, tarotbar.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, tarotbar.ErrProviderUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := p.Complete(context.Background(), tarotbar.ProviderRequest{
				Auth:  tarotbar.Auth{APIKey: "sk-test"},
				Model: "test-model",
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	_, p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "cmpl-2", "choices": []any{}})
	})

	_, err := p.Complete(context.Background(), tarotbar.ProviderRequest{
		Auth:  tarotbar.Auth{APIKey: "sk-test"},
		Model: "test-model",
	})
	assert.ErrorIs(t, err, tarotbar.ErrSchemaViolation)
}

func TestComplete_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, p := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := p.Complete(ctx, tarotbar.ProviderRequest{
		Auth:  tarotbar.Auth{APIKey: "sk-test"},
		Model: "test-model",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
