// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/assessment-engine/internal/logger"
)

// fakeBackend answers through fn.
type fakeBackend struct {
	fn    func(ctx context.Context, prompt string) (string, error)
	calls int32
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, prompt)
}

func reply(text string) *fakeBackend {
	return &fakeBackend{fn: func(context.Context, string) (string, error) { return text, nil }}
}

func failing(err error) *fakeBackend {
	return &fakeBackend{fn: func(context.Context, string) (string, error) { return "", err }}
}

func TestSend(t *testing.T) {
	tests := []struct {
		name        string
		backend     *fakeBackend
		wantText    string
		wantFailure FailureKind
	}{
		{name: "success", backend: reply("[{}]"), wantText: "[{}]"},
		{name: "classified call error", backend: failing(&CallError{Kind: FailureAuth, Err: errors.New("bad key")}), wantFailure: FailureAuth},
		{name: "wrapped call error", backend: failing(fmt.Errorf("calling: %w", &CallError{Kind: FailureQuota, Err: errors.New("slow down")})), wantFailure: FailureQuota},
		{name: "plain error", backend: failing(errors.New("connection reset")), wantFailure: FailureUnknown},
		{name: "blank reply", backend: reply("  \n "), wantFailure: FailureUnknown},
		{name: "panic", backend: &fakeBackend{fn: func(context.Context, string) (string, error) { panic("boom") }}, wantFailure: FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.backend, ClientOptions{})
			res := c.Send(context.Background(), "prompt")
			assert.Equal(t, tt.wantFailure, res.Failure)
			assert.Equal(t, tt.wantText, res.Text)
			assert.Equal(t, tt.wantFailure == FailureNone, res.OK())
			if !res.OK() {
				assert.Error(t, res.Err)
			}
		})
	}
}

func TestSendTimeout(t *testing.T) {
	blocking := &fakeBackend{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	core, logs := observer.New(zap.DebugLevel)
	c := NewClient(blocking, ClientOptions{Timeout: 20 * time.Millisecond, Log: logger.FromZap(zap.New(core))})

	start := time.Now()
	res := c.Send(context.Background(), "prompt")

	assert.Equal(t, FailureTimeout, res.Failure)
	assert.Less(t, time.Since(start), 2*time.Second)

	entries := logs.FilterMessage("model.call.failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "timeout", entries[0].ContextMap()["kind"])
	assert.Equal(t, "fake", entries[0].ContextMap()["backend"])
}

func TestSendBatchPreservesOrder(t *testing.T) {
	backend := &fakeBackend{fn: func(_ context.Context, prompt string) (string, error) {
		if prompt == "p1" {
			return "", &CallError{Kind: FailureQuota, Err: errors.New("rate limited")}
		}
		// Finish out of order.
		if prompt == "p0" {
			time.Sleep(10 * time.Millisecond)
		}
		return "reply-" + prompt, nil
	}}
	c := NewClient(backend, ClientOptions{Concurrency: 3})

	results := c.SendBatch(context.Background(), []string{"p0", "p1", "p2"})

	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.Equal(t, "reply-p0", results[0].Text)
	assert.False(t, results[1].OK())
	assert.Equal(t, FailureQuota, results[1].Failure)
	assert.True(t, results[2].OK())
	assert.Equal(t, "reply-p2", results[2].Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&backend.calls))
}

func TestSendBatchConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	backend := &fakeBackend{fn: func(context.Context, string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "ok", nil
	}}
	c := NewClient(backend, ClientOptions{Concurrency: 2})

	results := c.SendBatch(context.Background(), make([]string, 8))
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSendBatchEmpty(t *testing.T) {
	c := NewClient(reply("x"), ClientOptions{})
	assert.Empty(t, c.SendBatch(context.Background(), nil))
}
