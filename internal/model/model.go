// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model sends prompts to a generative model backend. The Client
// never returns an error: every failure, including an elapsed timeout, is
// reported as a classified FailureKind on the Result.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/assessment-engine/internal/logger"
)

// FailureKind classifies a failed model call.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureAuth      FailureKind = "auth"
	FailureQuota     FailureKind = "quota"
	FailureMalformed FailureKind = "malformed-request"
	FailureUnknown   FailureKind = "unknown"
	FailureTimeout   FailureKind = "timeout"
)

// Backend generates a reply for one prompt. Implementations may return any
// error; the Client classifies it.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// CallError is a backend error with a known failure kind.
type CallError struct {
	Kind FailureKind

	// Status is the HTTP status when the failure came from one, else 0.
	Status int
	Err    error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

var errEmptyReply = errors.New("model returned an empty reply")

// Result is the outcome of one call. Exactly one of Text and Failure is
// meaningful.
type Result struct {
	Text    string
	Failure FailureKind

	// Err is the underlying error for diagnostics. It is never surfaced to
	// end users.
	Err error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Failure == FailureNone }

// ClientOptions configures a Client.
type ClientOptions struct {
	// Timeout bounds each call. Zero disables the bound.
	Timeout time.Duration

	// Concurrency bounds in-flight calls in SendBatch (default 4).
	Concurrency int

	Log *logger.Logger
}

// Client wraps a Backend with a timeout, failure classification, and logging.
type Client struct {
	backend     Backend
	timeout     time.Duration
	concurrency int
	log         *logger.Logger
}

// NewClient creates a client for backend.
func NewClient(backend Backend, opts ClientOptions) *Client {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	return &Client{
		backend:     backend,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		log:         opts.Log.With("backend", backend.Name()),
	}
}

// Send performs one call. It never panics and never returns an error.
func (c *Client) Send(ctx context.Context, prompt string) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Failure: FailureUnknown, Err: fmt.Errorf("backend panic: %v", r)}
			c.log.Error("model.call.panic", "panic", fmt.Sprint(r))
		}
	}()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.backend.Generate(callCtx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &CallError{Kind: FailureUnknown, Err: errEmptyReply}
	}
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		kind := Classify(err)
		c.log.Warn("model.call.failed",
			"kind", string(kind),
			"error", err.Error(),
			"elapsed_ms", elapsed,
		)
		return Result{Failure: kind, Err: err}
	}

	c.log.Debug("model.call.ok",
		"prompt_chars", len(prompt),
		"reply_chars", len(text),
		"elapsed_ms", elapsed,
	)
	return Result{Text: text}
}

// SendBatch sends every prompt with bounded concurrency. The result slice
// has the same length and order as prompts; a failed call marks only its
// own slot.
func (c *Client) SendBatch(ctx context.Context, prompts []string) []Result {
	results := make([]Result, len(prompts))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, p := range prompts {
		g.Go(func() error {
			results[i] = c.Send(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	c.log.Info("model.batch.done", "prompts", len(prompts), "failed", failed)
	return results
}
