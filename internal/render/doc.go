// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns conversation state into terminal output.
//
// Assistant text is rendered as Markdown with glamour, flight and hotel
// options become lipgloss cards, and list views are truncated by display
// width so CJK titles and emoji line up. All functions return strings; the
// caller decides where they are written.
//
// # Key Types
//
//   - Renderer: theme-aware formatter for messages, cards and lists
//   - Palette: the colors of one theme
//
// Colors are disabled when stdout is not a terminal, when NO_COLOR is set,
// or when the renderer is built with termenv.Ascii.
package render
