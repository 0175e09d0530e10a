// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleDocument  Role = "document"
)

// Message is one entry in a conversation history.
type Message struct {
	Role    Role      `json:"role" yaml:"role"`
	Content string    `json:"content" yaml:"content"`
	At      time.Time `json:"at" yaml:"at"`
}

// Conversation is a conversation's identity and bookkeeping.
type Conversation struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" yaml:"expires_at"`
}
