// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

const redisKeyPrefix = "assessment-engine:conversation:"

// RedisStore keeps conversations in redis. Each conversation is a hash of
// metadata plus a list of JSON-encoded messages; both keys carry the TTL,
// so redis evicts idle conversations on its own.
type RedisStore struct {
	rdb  *goredis.Client
	opts Options
}

// NewRedisStore connects to addr and verifies the connection with PING.
func NewRedisStore(ctx context.Context, addr string, opts Options) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis session backend: address is required")
	}
	opts = opts.withDefaults()
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.RedisPassword,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, opts: opts}, nil
}

func metaKey(id string) string { return redisKeyPrefix + id + ":meta" }
func msgsKey(id string) string { return redisKeyPrefix + id + ":messages" }

func (s *RedisStore) Create(ctx context.Context) (types.Conversation, error) {
	now := s.opts.Now()
	conv := types.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, metaKey(conv.ID), "created_at", now.UnixNano())
		p.Expire(ctx, metaKey(conv.ID), s.opts.TTL)
		return nil
	})
	if err != nil {
		return types.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *RedisStore) exists(ctx context.Context, id string) error {
	n, err := s.rdb.Exists(ctx, metaKey(id)).Result()
	if err != nil {
		return fmt.Errorf("looking up conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msgs ...types.Message) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	now := s.opts.Now()
	encoded := make([]any, 0, len(msgs))
	for _, m := range msgs {
		if m.At.IsZero() {
			m.At = now
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding message: %w", err)
		}
		encoded = append(encoded, raw)
	}

	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		if len(encoded) > 0 {
			p.RPush(ctx, msgsKey(id), encoded...)
			p.Expire(ctx, msgsKey(id), s.opts.TTL)
		}
		p.Expire(ctx, metaKey(id), s.opts.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending messages: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, id string) ([]types.Message, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	raw, err := s.rdb.LRange(ctx, msgsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	msgs := make([]types.Message, 0, len(raw))
	for _, r := range raw {
		var m types.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decoding message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Close(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, metaKey(id), msgsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep is a no-op: redis expires keys itself.
func (s *RedisStore) Sweep(context.Context) (int, error) { return 0, nil }

func (s *RedisStore) Shutdown() error {
	return s.rdb.Close()
}
