// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session stores conversation histories with TTL eviction.
//
// A conversation lives until it is closed explicitly or until it has been
// idle for longer than the store's TTL. Appending a message counts as
// activity and pushes the expiry forward.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/assessment-engine/internal/logger"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

// ErrNotFound is returned for unknown, closed, or expired conversations.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversation histories. Implementations are safe for
// concurrent use.
type Store interface {
	// Create starts an empty conversation.
	Create(ctx context.Context) (types.Conversation, error)

	// Append adds messages to the end of a conversation and refreshes its
	// expiry.
	Append(ctx context.Context, id string, msgs ...types.Message) error

	// History returns the messages of a conversation in append order.
	History(ctx context.Context, id string) ([]types.Message, error)

	// Close evicts a conversation immediately.
	Close(ctx context.Context, id string) error

	// Sweep evicts every expired conversation and returns how many it
	// removed.
	Sweep(ctx context.Context) (int, error)

	// Shutdown releases the store's resources.
	Shutdown() error
}

// Options holds settings shared by all backends.
type Options struct {
	TTL time.Duration

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time

	// RedisPassword authenticates against the redis backend.
	RedisPassword string

	Log *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 2 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	return o
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg types.SessionConfig, opts Options) (Store, error) {
	opts.TTL = cfg.TTL
	switch cfg.Backend {
	case types.SessionMemory, "":
		return NewMemoryStore(opts), nil
	case types.SessionSQLite:
		return NewSQLiteStore(cfg.Path, opts)
	case types.SessionRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, opts)
	default:
		return nil, fmt.Errorf("unknown session backend %q: use memory, sqlite, or redis", cfg.Backend)
	}
}
