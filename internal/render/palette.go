// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flybuddy/internal/model"
)

// Palette holds the colors of one theme.
type Palette struct {
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Border    lipgloss.Color
	Price     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var (
	darkPalette = Palette{
		Accent:    lipgloss.Color("39"),  // Cyan
		Text:      lipgloss.Color("252"), // Off-white
		Muted:     lipgloss.Color("245"), // Light gray
		User:      lipgloss.Color("212"), // Pink
		Assistant: lipgloss.Color("42"),  // Green
		Border:    lipgloss.Color("62"),  // Purple
		Price:     lipgloss.Color("220"), // Gold
		Success:   lipgloss.Color("42"),
		Warning:   lipgloss.Color("214"),
		Error:     lipgloss.Color("196"),
	}

	lightPalette = Palette{
		Accent:    lipgloss.Color("25"),  // Blue
		Text:      lipgloss.Color("235"), // Near black
		Muted:     lipgloss.Color("242"), // Gray
		User:      lipgloss.Color("125"), // Magenta
		Assistant: lipgloss.Color("28"),  // Dark green
		Border:    lipgloss.Color("63"),
		Price:     lipgloss.Color("130"), // Brown
		Success:   lipgloss.Color("28"),
		Warning:   lipgloss.Color("166"),
		Error:     lipgloss.Color("160"),
	}
)

// PaletteFor returns the palette of a theme.
func PaletteFor(t model.Theme) Palette {
	if t == model.ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// styles are the lipgloss styles derived from a palette.
type styles struct {
	title     lipgloss.Style
	muted     lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	text      lipgloss.Style
	price     lipgloss.Style
	card      lipgloss.Style
	cardTitle lipgloss.Style
	selected  lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	info      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, p Palette) styles {
	return styles{
		title:     r.NewStyle().Bold(true).Foreground(p.Accent),
		muted:     r.NewStyle().Foreground(p.Muted),
		user:      r.NewStyle().Bold(true).Foreground(p.User),
		assistant: r.NewStyle().Bold(true).Foreground(p.Assistant),
		text:      r.NewStyle().Foreground(p.Text),
		price:     r.NewStyle().Bold(true).Foreground(p.Price),
		card: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		cardTitle: r.NewStyle().Bold(true).Foreground(p.Text),
		selected:  r.NewStyle().Bold(true).Foreground(p.Accent),
		success:   r.NewStyle().Bold(true).Foreground(p.Success),
		warning:   r.NewStyle().Foreground(p.Warning),
		err:       r.NewStyle().Bold(true).Foreground(p.Error),
		info:      r.NewStyle().Foreground(p.Accent),
	}
}
