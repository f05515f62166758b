// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// Config holds configuration for the session controller.
type Config struct {
	// AutoSaveInterval is how often the autosave loop runs (default: 30 seconds)
	AutoSaveInterval time.Duration

	// FeedbackTimeout bounds the best-effort feedback call made on like.
	FeedbackTimeout time.Duration

	// SendFeedback enables posting likes to the feedback endpoint.
	SendFeedback bool
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		AutoSaveInterval: 30 * time.Second,
		FeedbackTimeout:  5 * time.Second,
		SendFeedback:     true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AutoSaveInterval <= 0 {
		c.AutoSaveInterval = def.AutoSaveInterval
	}
	if c.FeedbackTimeout <= 0 {
		c.FeedbackTimeout = def.FeedbackTimeout
	}
	return c
}
