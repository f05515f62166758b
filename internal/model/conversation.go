// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/flybuddy/internal/util"
)

// DefaultTitle is the title of a conversation before its first user message.
const DefaultTitle = "New Chat"

// MaxTitleLength is the number of characters kept from the first user
// message when deriving a title.
const MaxTitleLength = 50

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation represents a chat conversation with its full message history.
// Messages are append-only; only Liked on an existing message may change.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Draft     string    `json:"draft"`
}

// NewConversation creates an empty conversation with the default title.
func NewConversation(id string, now time.Time) Conversation {
	ts := Millis(now)
	return Conversation{
		ID:        id,
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Append adds a message and refreshes UpdatedAt. The first user message
// replaces a default title with a title derived from its content.
func (c *Conversation) Append(msg Message, now time.Time) {
	if msg.Sender == SenderUser && c.HasDefaultTitle() && c.UserMessageCount() == 0 {
		c.Title = DeriveTitle(msg.Content)
	}
	c.Messages = append(c.Messages, msg)
	c.Touch(now)
}

// ToggleLike flips the liked flag of the message with the given ID.
// Returns the new state and whether the message was found.
func (c *Conversation) ToggleLike(messageID string, now time.Time) (liked bool, ok bool) {
	idx := c.FindMessage(messageID)
	if idx < 0 {
		return false, false
	}
	liked = c.Messages[idx].toggleLike()
	c.Touch(now)
	return liked, true
}

// ClearMessages removes all messages and resets the title, keeping the record.
func (c *Conversation) ClearMessages(now time.Time) {
	c.Messages = []Message{}
	c.Title = DefaultTitle
	c.Touch(now)
}

// SetDraft stores unsent input text.
func (c *Conversation) SetDraft(text string, now time.Time) {
	c.Draft = text
	c.Touch(now)
}

// Touch refreshes UpdatedAt. It never moves backwards.
func (c *Conversation) Touch(now time.Time) {
	if ts := Millis(now); ts > c.UpdatedAt {
		c.UpdatedAt = ts
	}
}

// FindMessage returns the index of the message with the given ID, or -1.
func (c *Conversation) FindMessage(messageID string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// HasDefaultTitle reports whether the title is still the default.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == "" || c.Title == DefaultTitle
}

// UserMessageCount returns the number of user messages.
func (c *Conversation) UserMessageCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Sender == SenderUser {
			n++
		}
	}
	return n
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Matches reports whether query appears in the title or any message,
// ignoring case.
func (c *Conversation) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no mutable state with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// =============================================================================
// TITLES
// =============================================================================

// DeriveTitle builds a conversation title from a user message: newlines are
// collapsed and the text is cut to MaxTitleLength characters plus "..." when
// longer.
func DeriveTitle(content string) string {
	text := util.CollapseNewlines(norm.NFC.String(content))
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) <= MaxTitleLength {
		return text
	}
	return string(runes[:MaxTitleLength]) + "..."
}
