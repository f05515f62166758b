// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides conversation export functionality for flybuddy.
//
// # Key Types
//
//   - Format: Export format enumeration (text, Markdown, JSON)
//   - Exporter: Main export interface
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - Text: plain transcript with flight and hotel summaries
//   - Markdown: frontmatter, headings and option tables
//   - JSON: the stored conversation record, suitable for re-import
//
// # Usage
//
//	exporter, err := export.New(export.FormatMarkdown, nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(&conv, exporter, nil)
//
// Files are written atomically so an interrupted export never leaves a
// truncated file behind.
package export
