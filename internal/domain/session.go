package domain

import (
	"encoding/json"
	"time"
)

// Message roles. System messages are protected from context-window eviction.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a persisted, owned unit of conversational state with bounded
// memory and a time-to-live. Every write extends ExpiresAt; ListActive hides
// sessions whose expiry has passed.
type Session struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"ownerId"`
	Name          string          `json:"name"`
	MemoryEnabled bool            `json:"memoryEnabled"`
	ContextWindow int             `json:"contextWindow"`
	Messages      []Message       `json:"messages"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// Message is one unit in a session's log. Settings is an optional snapshot of
// the generation parameters in effect when the message was produced.
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// ValidRole reports whether role is one of the three accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
