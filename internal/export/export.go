// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/util"
)

// ErrNilConversation is returned when asked to export nothing.
var ErrNilConversation = errors.New("conversation is nil")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".txt").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatJSON}

// ParseFormat resolves a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "txt", "text", "plain":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatText:
		return NewTextExporter(opts), nil
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes a header with dates and counts.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message times.
	IncludeTimestamps bool

	// Location renders timestamps; nil means time.Local.
	Location *time.Location

	// Now stamps the export; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(conv *model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if conv == nil {
		return "", ErrNilConversation
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := Filename(conv, exporter.FileExtension(), opts.now())

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := checkWritable(outDir); err != nil {
		return "", fmt.Errorf("output directory: %w", err)
	}
	outputPath := filepath.Join(outDir, filename)

	// RELIABILITY: Atomic write so a crash never leaves a partial export
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// ExportFormat exports conv in the named format.
func ExportFormat(conv *model.Conversation, format Format, opts *Options) (string, error) {
	exporter, err := New(format, opts)
	if err != nil {
		return "", err
	}
	return ExportToFile(conv, exporter, opts)
}

// Filename builds the output file name for conv.
func Filename(conv *model.Conversation, ext string, at time.Time) string {
	return fmt.Sprintf("flybuddy_%s_%s%s",
		sanitizeFilename(conv.Title),
		at.Format("20060102_150405"),
		ext,
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)
	s = strings.TrimSuffix(s, "...")

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// validate rejects conversations that cannot produce a meaningful transcript.
func validate(conv *model.Conversation) error {
	if conv == nil {
		return ErrNilConversation
	}
	if len(conv.Messages) == 0 {
		return errors.New("conversation has no messages")
	}
	if conv.CreatedAt <= 0 {
		return errors.New("conversation has invalid creation timestamp")
	}
	return nil
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format("15:04")
}

// flightSummary renders one flight on a single line.
func flightSummary(f model.FlightInfo) string {
	var parts []string
	name := strings.TrimSpace(f.Airline + " " + f.FlightNumber)
	if name != "" {
		parts = append(parts, name)
	}
	if f.Departure.Airport != "" || f.Arrival.Airport != "" {
		parts = append(parts, fmt.Sprintf("%s %s -> %s %s",
			f.Departure.Airport, f.Departure.Time, f.Arrival.Airport, f.Arrival.Time))
	}
	if f.Duration != "" {
		parts = append(parts, f.Duration.String())
	}
	parts = append(parts, stopsLabel(f.Stops))
	if f.Price != "" {
		parts = append(parts, f.Price.String())
	}
	return strings.Join(parts, " | ")
}

// hotelSummary renders one hotel on a single line.
func hotelSummary(h model.HotelInfo) string {
	parts := []string{h.Name}
	if h.Location != "" {
		parts = append(parts, h.Location)
	}
	if h.Rating != "" {
		rating := "rating " + h.Rating.String()
		if h.Reviews != "" {
			rating += " (" + h.Reviews.String() + " reviews)"
		}
		parts = append(parts, rating)
	}
	if h.Price != "" {
		price := h.Price.String()
		if h.Currency != "" {
			price += " " + h.Currency
		}
		parts = append(parts, price)
	}
	return strings.Join(parts, " | ")
}

func stopsLabel(stops int) string {
	switch stops {
	case 0:
		return "nonstop"
	case 1:
		return "1 stop"
	default:
		return fmt.Sprintf("%d stops", stops)
	}
}

// checkWritable reports whether dir can hold an export.
func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
