// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/flybuddy/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}
	loc := e.options.location()
	now := e.options.now().In(loc)

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(conv.Title))
		fmt.Fprintf(&sb, "id: %s\n", conv.ID)
		fmt.Fprintf(&sb, "date: %s\n", time.UnixMilli(conv.CreatedAt).In(loc).Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", time.UnixMilli(conv.UpdatedAt).In(loc).Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", now.Format(time.RFC3339))
		sb.WriteString("generator: flybuddy\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(conv.Title))

	for i, msg := range conv.Messages {
		label := msg.Sender.DisplayName()
		if msg.IsLiked() {
			label += " (liked)"
		}
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatTimestamp(msg.Timestamp, loc))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.HasData() {
			e.writeTravelData(&sb, msg.Data)
		}

		// Separator between messages (except last)
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from FlyBuddy on %s*\n", now.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// writeTravelData renders flight and hotel options as tables.
func (e *MarkdownExporter) writeTravelData(sb *strings.Builder, data *model.TravelData) {
	if data.HasFlights() {
		sb.WriteString("**Flights**\n\n")
		sb.WriteString("| Airline | Flight | From | To | Duration | Stops | Price |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, f := range data.Flights {
			fmt.Fprintf(sb, "| %s | %s | %s %s | %s %s | %s | %s | %s |\n",
				escapeCell(f.Airline), escapeCell(f.FlightNumber),
				escapeCell(f.Departure.Airport), escapeCell(f.Departure.Time),
				escapeCell(f.Arrival.Airport), escapeCell(f.Arrival.Time),
				escapeCell(f.Duration.String()), stopsLabel(f.Stops), escapeCell(f.Price.String()))
		}
		sb.WriteString("\n")
	}
	if data.HasHotels() {
		sb.WriteString("**Hotels**\n\n")
		sb.WriteString("| Hotel | Location | Rating | Price |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, h := range data.Hotels {
			name := escapeCell(h.Name)
			if h.Link != "" {
				name = fmt.Sprintf("[%s](%s)", name, h.Link)
			}
			price := h.Price.String()
			if h.Currency != "" && price != "" {
				price += " " + h.Currency
			}
			fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
				name, escapeCell(h.Location), escapeCell(h.Rating.String()), escapeCell(price))
		}
		sb.WriteString("\n")
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeCell keeps table cells on one row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
