// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assessment-engine/internal/httputil"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// claudeServer points claudeAPIURL at a test server for the duration of t.
func claudeServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
}

func TestClaudeGenerate(t *testing.T) {
	var got claudeRequest
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"[{\"question\":"},{"type":"tool_use"},{"type":"text","text":"\"q\"}]"}]}`))
	})

	b := &ClaudeBackend{APIKey: "test-key", Model: "claude-test", MaxTokens: 512}
	text, err := b.Generate(context.Background(), "make a quiz")
	require.NoError(t, err)

	assert.Equal(t, `[{"question":"q"}]`, text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "make a quiz", got.Messages[0].Content)
}

func TestClaudeGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind FailureKind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, wantKind: FailureAuth},
		{name: "rate limited after retries", status: http.StatusTooManyRequests, body: `{}`, wantKind: FailureQuota},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"type":"invalid_request_error","message":"prompt is too long"}}`, wantKind: FailureMalformed},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantKind: FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			b := &ClaudeBackend{APIKey: "k", Model: "m", MaxRetries: 1}
			_, err := b.Generate(context.Background(), "prompt")

			var callErr *CallError
			require.True(t, errors.As(err, &callErr), "got %v", err)
			assert.Equal(t, tt.wantKind, callErr.Kind)
			assert.Equal(t, tt.status, callErr.Status)
			assert.Equal(t, tt.wantKind, Classify(err))
		})
	}
}

func TestClaudeEmptyContent(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})
	_, err := (&ClaudeBackend{APIKey: "k", Model: "m"}).Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestClaudeThroughClient(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := NewClient(&ClaudeBackend{APIKey: "k", Model: "m"}, ClientOptions{Timeout: 30 * time.Millisecond})
	res := c.Send(context.Background(), "p")
	assert.Equal(t, FailureTimeout, res.Failure)
}
