// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting flybuddy commands.
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/flybuddy/internal/model"
)

// JSONResponse is the envelope written by every command in --json mode.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// ConversationSummary is one row of `flybuddy list --json`.
type ConversationSummary struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Messages  int    `json:"messages"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Current   bool   `json:"current"`
}

func summarize(list []model.Conversation, currentID string) []ConversationSummary {
	out := make([]ConversationSummary, len(list))
	for i, c := range list {
		out[i] = ConversationSummary{
			Index:     i + 1,
			ID:        c.ID,
			Title:     c.Title,
			Messages:  len(c.Messages),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Current:   c.ID == currentID,
		}
	}
	return out
}

// AskData is the output of `flybuddy ask --json`.
type AskData struct {
	ConversationID string        `json:"conversation_id"`
	Reply          model.Message `json:"reply"`
	Suggestions    []string      `json:"suggestions,omitempty"`
	Fallback       bool          `json:"fallback"`
	Notices        []string      `json:"notices,omitempty"`
}

// HealthData is the output of `flybuddy health --json`.
type HealthData struct {
	Endpoint         string  `json:"endpoint"`
	Status           string  `json:"status"`
	Healthy          bool    `json:"healthy"`
	BackendAvailable bool    `json:"backend_available"`
	Environment      string  `json:"environment,omitempty"`
	LatencyMs        float64 `json:"latency_ms"`
	Offline          bool    `json:"offline"`
}

// ThemeData is the output of `flybuddy theme --json`.
type ThemeData struct {
	Theme  model.Theme `json:"theme"`
	Stored bool        `json:"stored"`
}
