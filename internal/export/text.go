// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/flybuddy/internal/model"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports conversations as a plain text transcript.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a conversation to plain text.
func (e *TextExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}
	loc := e.options.location()

	var sb strings.Builder
	sb.WriteString(conv.Title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", max(len([]rune(conv.Title)), 8)))
	sb.WriteString("\n")

	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "Created:  %s\n", formatTimestamp(conv.CreatedAt, loc))
		fmt.Fprintf(&sb, "Updated:  %s\n", formatTimestamp(conv.UpdatedAt, loc))
		fmt.Fprintf(&sb, "Messages: %d\n", len(conv.Messages))
	}
	sb.WriteString("\n")

	for _, msg := range conv.Messages {
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "[%s] ", formatShortTimestamp(msg.Timestamp, loc))
		}
		sb.WriteString(msg.Sender.DisplayName())
		if msg.IsLiked() {
			sb.WriteString(" (liked)")
		}
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n")

		if msg.HasData() {
			for _, f := range msg.Data.Flights {
				sb.WriteString("    Flight: ")
				sb.WriteString(flightSummary(f))
				sb.WriteString("\n")
			}
			for _, h := range msg.Data.Hotels {
				sb.WriteString("    Hotel: ")
				sb.WriteString(hotelSummary(h))
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Exported from FlyBuddy on %s\n", e.options.now().In(loc).Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
