package domain

import (
	"encoding/json"
	"time"
)

// Take is one reconstructed prompt/response exchange derived from a flat
// message log. Response fields are nil while the assistant reply has not
// arrived yet.
type Take struct {
	Index             int             `json:"index"`
	Prompt            string          `json:"prompt"`
	PromptTimestamp   *time.Time      `json:"promptTimestamp,omitempty"`
	Response          *string         `json:"response"`
	ResponseTimestamp *time.Time      `json:"responseTimestamp,omitempty"`
	Settings          json.RawMessage `json:"settings,omitempty"`
}

// Answered reports whether the take has received its assistant response.
func (t Take) Answered() bool {
	return t.Response != nil
}

// Reconstruct pairs a message log into Takes. Each user message opens a new
// take, the assistant message that follows fills its response, and an
// assistant message with no open take is dropped: a response cannot exist
// without a preceding prompt. System messages are ignored. When both the user
// and the assistant message carry settings, the assistant's win.
//
// The input is never mutated and the same log always yields the same takes.
func Reconstruct(messages []Message) []Take {
	takes := make([]Take, 0, len(messages)/2)
	var open *Take
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			if open != nil {
				takes = append(takes, *open)
			}
			open = &Take{
				Index:           len(takes),
				Prompt:          m.Content,
				PromptTimestamp: m.Timestamp,
				Settings:        m.Settings,
			}
		case RoleAssistant:
			if open == nil {
				continue
			}
			response := m.Content
			open.Response = &response
			open.ResponseTimestamp = m.Timestamp
			if len(m.Settings) > 0 {
				open.Settings = m.Settings
			}
		}
	}
	if open != nil {
		takes = append(takes, *open)
	}
	return takes
}
