// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/flybuddy/internal/conversation"
	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/storage"
	"github.com/jeranaias/flybuddy/internal/transport"
)

var (
	// ErrBusy is returned by Submit while another request is in flight.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// ChatClient is the subset of transport.Client the controller uses.
type ChatClient interface {
	Send(ctx context.Context, message, conversationID string) (*transport.Reply, error)
	SendFeedback(ctx context.Context, fb transport.Feedback) error
}

// languageSetter is implemented by clients that forward the UI language.
type languageSetter interface {
	WithLanguage(model.Language) *transport.Client
}

// Result is the outcome of one Submit.
type Result struct {
	User        model.Message
	Reply       model.Message
	Suggestions []string
	Fallback    bool
	Notices     []Notice
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the conversation state of one CLI session.
type Controller struct {
	conv   *conversation.Manager
	client ChatClient
	prefs  *storage.Prefs
	log    *zap.Logger
	cfg    Config

	busy atomic.Bool

	mu           sync.Mutex
	sessionID    string
	startTime    time.Time
	lastActivity time.Time
	lastAutoSave time.Time
	isDirty      bool
	settings     model.Settings
	rng          *rand.Rand
	onAutoSave   func(error)

	feedback sync.WaitGroup
}

// NewController creates a controller. Settings are read from prefs.
func NewController(conv *conversation.Manager, client ChatClient, prefs *storage.Prefs, cfg Config) *Controller {
	now := time.Now()
	c := &Controller{
		conv:         conv,
		client:       client,
		prefs:        prefs,
		log:          zap.NewNop(),
		cfg:          cfg.withDefaults(),
		sessionID:    generateSessionID(now),
		startTime:    now,
		lastActivity: now,
		lastAutoSave: now,
		settings:     prefs.Settings(),
		rng:          rand.New(rand.NewPCG(uint64(now.UnixNano()), 0x9e3779b97f4a7c15)),
	}
	c.applyLanguage(c.settings.Language)
	return c
}

// WithLogger sets the logger.
func (c *Controller) WithLogger(log *zap.Logger) *Controller {
	if log != nil {
		c.log = log.Named("session")
	}
	return c
}

// WithRand sets the source used to pick fallback replies.
func (c *Controller) WithRand(rng *rand.Rand) *Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rng != nil {
		c.rng = rng
	}
	return c
}

// Conversations returns the conversation manager.
func (c *Controller) Conversations() *conversation.Manager {
	return c.conv
}

// Busy reports whether a Submit is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit records text as a user message, sends it to the chat service and
// records the reply. Transport failures do not fail Submit: a fallback
// assistant message is recorded and described by a Notice instead.
func (c *Controller) Submit(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.busy.Store(false)

	c.RecordActivity()
	res := &Result{}

	res.User = c.conv.AppendMessage(model.SenderUser, text, nil)
	if cur, ok := c.conv.Current(); ok && cur.Draft != "" {
		c.conv.SetDraft("")
	}
	c.checkStorage(res)

	convID := ""
	if cur, ok := c.conv.Current(); ok {
		convID = cur.ID
	}

	reply, err := c.client.Send(ctx, text, convID)
	if err != nil {
		c.log.Warn("chat send failed, using fallback reply",
			zap.String("conversation_id", convID), zap.Error(err))
		res.Fallback = true
		res.Notices = append(res.Notices, noticeForTransport(err))
		res.Reply = c.conv.AppendMessage(model.SenderAssistant, c.fallback(), nil)
	} else {
		res.Reply = c.conv.AppendMessage(model.SenderAssistant, reply.Message, reply.Data)
		res.Suggestions = reply.Suggestions
	}
	c.checkStorage(res)
	c.MarkDirty()
	return res, nil
}

func (c *Controller) fallback() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return transport.FallbackReply(c.rng)
}

func (c *Controller) checkStorage(res *Result) {
	err := c.conv.LastError()
	if err == nil {
		return
	}
	for _, n := range res.Notices {
		if n.Kind == NoticeStorage {
			return
		}
	}
	res.Notices = append(res.Notices, noticeForStorage(err))
}

// =============================================================================
// LIKES
// =============================================================================

// ToggleLike flips the liked flag on a message of the current conversation
// and, when enabled, reports the new state to the feedback endpoint in the
// background.
func (c *Controller) ToggleLike(messageID string) (liked bool, ok bool) {
	liked, ok = c.conv.ToggleLike(messageID)
	if !ok {
		return false, false
	}
	c.RecordActivity()
	c.MarkDirty()

	if !c.cfg.SendFeedback {
		return liked, true
	}
	cur, _ := c.conv.Current()
	fb := transport.Feedback{ConversationID: cur.ID, MessageID: messageID, Liked: liked}
	if idx := cur.FindMessage(messageID); idx >= 0 {
		fb.Content = cur.Messages[idx].Preview(200)
	}

	c.feedback.Add(1)
	go func() {
		defer c.feedback.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FeedbackTimeout)
		defer cancel()
		if err := c.client.SendFeedback(ctx, fb); err != nil {
			c.log.Debug("feedback not delivered", zap.String("message_id", messageID), zap.Error(err))
		}
	}()
	return liked, true
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the active settings.
func (c *Controller) Settings() model.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings persists s and applies it. The new settings stay active
// even when they could not be saved.
func (c *Controller) UpdateSettings(s model.Settings) error {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	c.applyLanguage(s.Language)
	return c.prefs.SetSettings(s)
}

func (c *Controller) applyLanguage(lang model.Language) {
	if ls, ok := c.client.(languageSetter); ok {
		ls.WithLanguage(lang)
	}
}

// =============================================================================
// ACTIVITY AND AUTOSAVE
// =============================================================================

// RecordActivity updates the last activity timestamp.
func (c *Controller) RecordActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// MarkDirty indicates the session has changes the autosave should flush.
func (c *Controller) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isDirty = true
}

// MarkClean indicates the session has been saved.
func (c *Controller) MarkClean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isDirty = false
	c.lastAutoSave = time.Now()
}

// IsDirty returns whether the session has unsaved changes.
func (c *Controller) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isDirty
}

// SetAutoSaveCallback sets a function called after each autosave attempt.
func (c *Controller) SetAutoSaveCallback(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAutoSave = fn
}

// ShouldAutoSave reports whether the autosave loop would save now.
func (c *Controller) ShouldAutoSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.AutoSave && c.isDirty
}

// AutoSave re-persists the in-memory conversation when autosave is enabled
// and there are changes. It reports whether a save was attempted.
func (c *Controller) AutoSave() (bool, error) {
	if !c.ShouldAutoSave() {
		return false, nil
	}
	err := c.conv.Save()

	c.mu.Lock()
	onAutoSave := c.onAutoSave
	c.mu.Unlock()

	if err != nil {
		c.log.Error("autosave failed", zap.Error(err))
	} else {
		c.MarkClean()
		c.log.Debug("autosaved conversation")
	}
	if onAutoSave != nil {
		onAutoSave(err)
	}
	return true, err
}

// Run performs autosave every AutoSaveInterval until ctx is done, then
// makes a final save attempt.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.AutoSaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.AutoSave()
			return
		case <-ticker.C:
			c.AutoSave()
		}
	}
}

// Close waits for background feedback calls and flushes pending changes.
func (c *Controller) Close() error {
	c.feedback.Wait()
	if c.IsDirty() {
		if err := c.conv.Save(); err != nil {
			return err
		}
		c.MarkClean()
	}
	return nil
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID string
	StartTime time.Time
	Duration  time.Duration
	IdleTime  time.Duration
	IsDirty   bool
	Busy      bool
}

// GetStatus returns the current session status.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	return Status{
		SessionID: c.sessionID,
		StartTime: c.startTime,
		Duration:  now.Sub(c.startTime),
		IdleTime:  now.Sub(c.lastActivity),
		IsDirty:   c.isDirty,
		Busy:      c.busy.Load(),
	}
}

// generateSessionID creates a unique session ID.
func generateSessionID(t time.Time) string {
	return "sess_" + t.Format("20060102_150405")
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
