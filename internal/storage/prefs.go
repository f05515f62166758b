// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/model"
)

// Well-known keys.
const (
	KeyTheme               = "flybuddy_theme"
	KeySettings            = "flybuddy_settings"
	KeyConversations       = "flybuddy_conversations"
	KeyCurrentConversation = "flybuddy_current_conversation"
)

// =============================================================================
// PREFS
// =============================================================================

// Prefs provides typed access to the well-known keys of a Store.
//
// Reads never return errors: a missing value yields the default and a
// corrupt or unreadable one is logged at warn level and yields the default.
// Writes are logged on failure and the error is returned so callers can
// decide whether to surface it.
type Prefs struct {
	store        Store
	log          *zap.Logger
	defaultTheme model.Theme
}

// PrefsOption configures Prefs.
type PrefsOption func(*Prefs)

// WithDefaultTheme sets the theme returned when none is stored.
func WithDefaultTheme(t model.Theme) PrefsOption {
	return func(p *Prefs) {
		if _, ok := model.ParseTheme(string(t)); ok {
			p.defaultTheme = t
		}
	}
}

// NewPrefs wraps store. A nil logger is replaced by a no-op logger.
func NewPrefs(store Store, log *zap.Logger, opts ...PrefsOption) *Prefs {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Prefs{
		store:        store,
		log:          log.Named("storage"),
		defaultTheme: model.ThemeDark,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying store.
func (p *Prefs) Store() Store {
	return p.store
}

// =============================================================================
// THEME
// =============================================================================

// Theme returns the stored theme or the default.
func (p *Prefs) Theme() model.Theme {
	t, _ := p.StoredTheme()
	return t
}

// StoredTheme returns the theme and whether it came from storage.
func (p *Prefs) StoredTheme() (model.Theme, bool) {
	raw, ok := p.read(KeyTheme)
	if !ok {
		return p.defaultTheme, false
	}
	// Accept both a JSON string and a bare word.
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = strings.TrimSpace(string(raw))
	}
	t, ok := model.ParseTheme(s)
	if !ok {
		p.log.Warn("ignoring invalid stored theme", zap.String("value", s))
		return p.defaultTheme, false
	}
	return t, true
}

// SetTheme persists the theme.
func (p *Prefs) SetTheme(t model.Theme) error {
	return p.write(KeyTheme, t)
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns stored settings merged over the defaults.
func (p *Prefs) Settings() model.Settings {
	raw, ok := p.read(KeySettings)
	if !ok {
		return model.DefaultSettings()
	}
	s, err := model.MergeSettings(raw)
	if err != nil {
		p.log.Warn("stored settings unreadable, using defaults",
			zap.String("key", KeySettings), zap.Error(err))
	}
	return s
}

// SetSettings persists the settings.
func (p *Prefs) SetSettings(s model.Settings) error {
	return p.write(KeySettings, s)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversations returns the stored conversation list, or an empty list when
// absent or corrupt. Entries without an id and repeated ids are dropped.
func (p *Prefs) Conversations() []model.Conversation {
	raw, ok := p.read(KeyConversations)
	if !ok {
		return []model.Conversation{}
	}
	var list []model.Conversation
	if err := json.Unmarshal(raw, &list); err != nil {
		p.log.Warn("stored conversation list unreadable, starting empty",
			zap.String("key", KeyConversations), zap.Error(err))
		return []model.Conversation{}
	}

	seen := make(map[string]bool, len(list))
	out := make([]model.Conversation, 0, len(list))
	for _, c := range list {
		if c.ID == "" || seen[c.ID] {
			p.log.Warn("dropping invalid stored conversation", zap.String("id", c.ID))
			continue
		}
		seen[c.ID] = true
		out = append(out, normalize(c))
	}
	return out
}

// SetConversations persists the full conversation list.
func (p *Prefs) SetConversations(list []model.Conversation) error {
	if list == nil {
		list = []model.Conversation{}
	}
	return p.write(KeyConversations, list)
}

// =============================================================================
// CURRENT CONVERSATION
// =============================================================================

// Current returns the stored current conversation, if any.
func (p *Prefs) Current() (model.Conversation, bool) {
	raw, ok := p.read(KeyCurrentConversation)
	if !ok {
		return model.Conversation{}, false
	}
	var c model.Conversation
	if err := json.Unmarshal(raw, &c); err != nil {
		p.log.Warn("stored current conversation unreadable",
			zap.String("key", KeyCurrentConversation), zap.Error(err))
		return model.Conversation{}, false
	}
	if c.ID == "" {
		p.log.Warn("stored current conversation has no id")
		return model.Conversation{}, false
	}
	return normalize(c), true
}

// SetCurrent persists the current conversation.
func (p *Prefs) SetCurrent(c model.Conversation) error {
	return p.write(KeyCurrentConversation, c)
}

// ClearCurrent removes the current conversation pointer.
func (p *Prefs) ClearCurrent() error {
	if err := p.store.Delete(KeyCurrentConversation); err != nil {
		p.log.Error("failed to clear current conversation", zap.Error(err))
		return err
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (p *Prefs) read(key string) ([]byte, bool) {
	raw, err := p.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		p.log.Warn("storage read failed, using default", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (p *Prefs) write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		p.log.Error("failed to encode value", zap.String("key", key), zap.Error(err))
		return err
	}
	if err := p.store.Set(key, raw); err != nil {
		p.log.Error("storage write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// normalize fills fields older records may lack.
func normalize(c model.Conversation) model.Conversation {
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	if c.Title == "" {
		c.Title = model.DefaultTitle
	}
	if c.UpdatedAt < c.CreatedAt {
		c.UpdatedAt = c.CreatedAt
	}
	return c
}
