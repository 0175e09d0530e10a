// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

type memoryEntry struct {
	conv types.Conversation
	msgs []types.Message
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	opts    Options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		opts:    opts.withDefaults(),
	}
}

func (s *MemoryStore) Create(_ context.Context) (types.Conversation, error) {
	now := s.opts.Now()
	conv := types.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	s.mu.Lock()
	s.entries[conv.ID] = &memoryEntry{conv: conv}
	s.mu.Unlock()
	return conv, nil
}

// live returns the entry for id, evicting it first if it has expired.
// Callers hold s.mu.
func (s *MemoryStore) live(id string, now time.Time) (*memoryEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if !now.Before(e.conv.ExpiresAt) {
		delete(s.entries, id)
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) Append(_ context.Context, id string, msgs ...types.Message) error {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id, now)
	if !ok {
		return ErrNotFound
	}
	for _, m := range msgs {
		if m.At.IsZero() {
			m.At = now
		}
		e.msgs = append(e.msgs, m)
	}
	e.conv.ExpiresAt = now.Add(s.opts.TTL)
	return nil
}

func (s *MemoryStore) History(_ context.Context, id string) ([]types.Message, error) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id, now)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(e.msgs), nil
}

func (s *MemoryStore) Close(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.opts.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if !now.Before(e.conv.ExpiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored conversations, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Shutdown() error { return nil }
