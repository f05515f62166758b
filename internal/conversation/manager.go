// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/storage"
)

// =============================================================================
// MANAGER
// =============================================================================

// Manager holds at most one current conversation and the conversation list.
// It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	prefs *storage.Prefs
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	current *model.Conversation
	list    []model.Conversation
	lastErr error
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides how conversation and message ids are made.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager loads the conversation list and restores the current
// conversation from prefs.
func NewManager(prefs *storage.Prefs, opts ...Option) *Manager {
	m := &Manager{
		prefs: prefs,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("conversation")

	m.list = prefs.Conversations()
	if cur, ok := prefs.Current(); ok {
		m.current = &cur
		m.log.Debug("restored current conversation",
			zap.String("id", cur.ID), zap.Int("messages", len(cur.Messages)))
	}
	return m
}

// =============================================================================
// OPERATIONS
// =============================================================================

// StartNew persists the existing current conversation, if any, and makes a
// fresh empty conversation current. The new conversation joins the list on
// its first persisted mutation.
func (m *Manager) StartNew() model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startNewLocked()
}

func (m *Manager) startNewLocked() model.Conversation {
	if m.current != nil {
		m.persistCurrentLocked()
	}
	conv := model.NewConversation(m.newID(), m.now())
	m.current = &conv
	m.recordErr(m.prefs.SetCurrent(conv))
	m.log.Info("started conversation", zap.String("id", conv.ID))
	return conv.Clone()
}

// AppendMessage adds a message to the current conversation, starting one
// first when there is none, and persists.
func (m *Manager) AppendMessage(sender model.Sender, content string, data *model.TravelData) model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.startNewLocked()
	}
	now := m.now()
	msg := model.NewMessage(m.newID(), sender, content, data, now)
	m.current.Append(msg, now)
	m.persistLocked()
	return msg.Clone()
}

// ToggleLike flips the liked flag of a message in the current conversation.
// ok is false when there is no current conversation or no such message.
func (m *Manager) ToggleLike(messageID string) (liked bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false, false
	}
	liked, ok = m.current.ToggleLike(messageID, m.now())
	if !ok {
		return false, false
	}
	m.persistLocked()
	return liked, true
}

// LoadByID makes the listed conversation with the given id current.
// On a miss nothing changes. On a hit the previous current conversation is
// persisted first and the manager adopts a copy of the listed one.
func (m *Manager) LoadByID(id string) (model.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return model.Conversation{}, false
	}
	if m.current != nil {
		m.persistCurrentLocked()
		// Persisting may have prepended the old current.
		idx = m.indexLocked(id)
	}
	conv := m.list[idx].Clone()
	m.current = &conv
	m.recordErr(m.prefs.SetCurrent(conv))
	m.log.Info("loaded conversation", zap.String("id", id))
	return conv.Clone(), true
}

// Save re-persists the current conversation. It writes only what is already
// in memory. A fresh conversation with nothing in it stays out of the list.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.persistCurrentLocked()
}

// SetDraft stores unsent input on the current conversation.
func (m *Manager) SetDraft(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return false
	}
	m.current.SetDraft(text, m.now())
	m.persistLocked()
	return true
}

// ClearMessages empties the current conversation and resets its title.
func (m *Manager) ClearMessages() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return false
	}
	m.current.ClearMessages(m.now())
	m.persistLocked()
	return true
}

// =============================================================================
// QUERIES
// =============================================================================

// Current returns a copy of the current conversation.
func (m *Manager) Current() (model.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return model.Conversation{}, false
	}
	return m.current.Clone(), true
}

// Conversations returns a copy of the conversation list in stored order.
func (m *Manager) Conversations() []model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Conversation, len(m.list))
	for i, c := range m.list {
		out[i] = c.Clone()
	}
	return out
}

// Search returns listed conversations whose title or messages contain query.
func (m *Manager) Search(query string) []model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Conversation
	for _, c := range m.list {
		if c.Matches(query) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// LastError returns the most recent persistence failure, or nil when the
// last persist succeeded.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistLocked reconciles the current conversation into the list and writes
// both the list and the current pointer. Caller holds mu.
func (m *Manager) persistLocked() error {
	m.list = Reconcile(m.list, m.current.Clone())
	err := errors.Join(
		m.prefs.SetConversations(m.list),
		m.prefs.SetCurrent(*m.current),
	)
	m.lastErr = err
	return err
}

// persistCurrentLocked persists the current conversation unless it was
// never mutated: an unlisted conversation with no messages and no draft
// joins the list only on its first change. Caller holds mu.
func (m *Manager) persistCurrentLocked() error {
	if m.indexLocked(m.current.ID) < 0 && m.current.IsEmpty() && m.current.Draft == "" {
		return nil
	}
	return m.persistLocked()
}

func (m *Manager) recordErr(err error) {
	m.lastErr = err
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.list {
		if m.list[i].ID == id {
			return i
		}
	}
	return -1
}

// Reconcile merges conv into list: an entry with the same id is replaced in
// place, otherwise conv is prepended. The input slice is not modified.
func Reconcile(list []model.Conversation, conv model.Conversation) []model.Conversation {
	for i := range list {
		if list[i].ID == conv.ID {
			out := make([]model.Conversation, len(list))
			copy(out, list)
			out[i] = conv
			return out
		}
	}
	out := make([]model.Conversation, 0, len(list)+1)
	out = append(out, conv)
	return append(out, list...)
}
