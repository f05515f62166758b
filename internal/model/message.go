// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/flybuddy/internal/util"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "FlyBuddy"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
// Everything except Liked is fixed once the message is created.
type Message struct {
	ID        string      `json:"id"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Data      *TravelData `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Liked     *bool       `json:"liked,omitempty"`
}

// NewMessage creates a message stamped with now.
func NewMessage(id string, sender Sender, content string, data *TravelData, now time.Time) Message {
	return Message{
		ID:        id,
		Sender:    sender,
		Content:   content,
		Data:      data.Clone(),
		Timestamp: Millis(now),
	}
}

// IsLiked reports whether the message has been liked.
func (m Message) IsLiked() bool {
	return m.Liked != nil && *m.Liked
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// HasData reports whether the message carries flight or hotel records.
func (m Message) HasData() bool {
	return m.Data != nil && !m.Data.IsEmpty()
}

// Preview returns a truncated preview of the message content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.CollapseNewlines(m.Content), maxLen)
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Data = m.Data.Clone()
	if m.Liked != nil {
		liked := *m.Liked
		out.Liked = &liked
	}
	return out
}

// toggleLike flips the liked flag and returns the new state.
func (m *Message) toggleLike() bool {
	liked := !m.IsLiked()
	m.Liked = &liked
	return liked
}

// Millis converts t to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
