// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/util"
)

const (
	// cardWidth is the outer width of a flight or hotel card.
	cardWidth = 38

	// cardGap separates cards laid out side by side.
	cardGap = 1
)

// Options configures a Renderer.
type Options struct {
	// Output is where the color profile is detected; default os.Stdout.
	Output io.Writer
	// Profile overrides color detection when set.
	Profile *termenv.Profile
	// Theme selects the palette.
	Theme model.Theme
	// Width is the wrap width; 0 detects the terminal width.
	Width int
	// Markdown renders assistant text with glamour.
	Markdown bool
	// Location renders timestamps; nil means time.Local.
	Location *time.Location
}

// Renderer formats conversation state for the terminal.
type Renderer struct {
	mu       sync.Mutex
	lg       *lipgloss.Renderer
	profile  termenv.Profile
	theme    model.Theme
	width    int
	markdown bool
	loc      *time.Location
	styles   styles
	md       *glamour.TermRenderer
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	profile := ColorProfile()
	if opts.Profile != nil {
		profile = *opts.Profile
	}
	theme := opts.Theme
	if theme == "" {
		theme = model.ThemeDark
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	r := &Renderer{
		lg:       lipgloss.NewRenderer(out, termenv.WithProfile(profile)),
		profile:  profile,
		width:    TerminalWidth(opts.Width),
		markdown: opts.Markdown,
		loc:      loc,
	}
	r.SetTheme(theme)
	return r
}

// SetTheme switches palette and Markdown style.
func (r *Renderer) SetTheme(t model.Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.theme = t
	r.styles = newStyles(r.lg, PaletteFor(t))
	r.md = nil
	if r.markdown {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.glamourStyle()),
			glamour.WithWordWrap(r.width-4),
		)
		// Fall back to plain text if the renderer cannot be built
		if err == nil {
			r.md = md
		}
	}
}

func (r *Renderer) glamourStyle() string {
	if r.profile == termenv.Ascii {
		return "notty"
	}
	if r.theme == model.ThemeLight {
		return "light"
	}
	return "dark"
}

// Theme returns the active theme.
func (r *Renderer) Theme() model.Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

func (r *Renderer) snapshot() (styles, *glamour.TermRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.styles, r.md
}

// =============================================================================
// MESSAGES
// =============================================================================

// Message renders one message with its header, body and travel cards.
func (r *Renderer) Message(msg model.Message) string {
	st, md := r.snapshot()

	var sb strings.Builder
	sb.WriteString(r.header(st, msg))
	sb.WriteString("\n")

	body := strings.TrimSpace(msg.Content)
	if msg.Sender == model.SenderAssistant && md != nil {
		if rendered, err := md.Render(body); err == nil {
			body = strings.Trim(rendered, "\n")
		}
	} else {
		body = renderLines(st.text, WrapText(body, r.width-2))
	}
	sb.WriteString(body)
	sb.WriteString("\n")

	if msg.HasData() {
		if cards := r.TravelData(msg.Data); cards != "" {
			sb.WriteString("\n")
			sb.WriteString(cards)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (r *Renderer) header(st styles, msg model.Message) string {
	name := msg.Sender.DisplayName()
	switch msg.Sender {
	case model.SenderUser:
		name = st.user.Render(name)
	case model.SenderAssistant:
		name = st.assistant.Render(name)
	}
	meta := st.muted.Render(time.UnixMilli(msg.Timestamp).In(r.loc).Format("15:04"))
	line := name + " " + meta
	if msg.IsLiked() {
		line += " " + st.price.Render("♥")
	}
	return line
}

// Conversation renders every message of conv, numbering assistant replies
// so they can be liked by number.
func (r *Renderer) Conversation(conv model.Conversation) string {
	st, _ := r.snapshot()

	var sb strings.Builder
	sb.WriteString(st.title.Render(conv.Title))
	sb.WriteString("\n")
	sb.WriteString(st.muted.Render(fmt.Sprintf("%d messages, updated %s",
		len(conv.Messages), r.formatTime(conv.UpdatedAt))))
	sb.WriteString("\n\n")

	if conv.IsEmpty() {
		sb.WriteString(st.muted.Render("No messages yet."))
		sb.WriteString("\n")
		return sb.String()
	}

	reply := 0
	for _, msg := range conv.Messages {
		if msg.Sender == model.SenderAssistant {
			reply++
			sb.WriteString(st.muted.Render(fmt.Sprintf("#%d ", reply)))
		}
		sb.WriteString(r.Message(msg))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Suggestions renders follow-up prompts.
func (r *Renderer) Suggestions(items []string) string {
	if len(items) == 0 {
		return ""
	}
	st, _ := r.snapshot()
	var sb strings.Builder
	sb.WriteString(st.muted.Render("Try asking:"))
	sb.WriteString("\n")
	for _, s := range items {
		sb.WriteString(st.muted.Render("  - "))
		sb.WriteString(st.info.Render(util.TruncateWidth(s, r.width-6)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// ConversationList renders a numbered table of conversations. The row whose
// id equals currentID is marked.
func (r *Renderer) ConversationList(list []model.Conversation, currentID string) string {
	st, _ := r.snapshot()
	if len(list) == 0 {
		return st.muted.Render("No saved conversations.") + "\n"
	}

	const (
		markW  = 2
		numW   = 4
		countW = 6
		dateW  = 17
	)
	titleW := max(r.width-markW-numW-countW-dateW-3, 10)

	var sb strings.Builder
	head := strings.Repeat(" ", markW) +
		util.PadWidth("#", numW) +
		util.PadWidth("Title", titleW) + " " +
		fmt.Sprintf("%*s", countW, "Msgs") + "  " +
		"Updated"
	sb.WriteString(st.muted.Render(head))
	sb.WriteString("\n")

	for i, conv := range list {
		mark := "  "
		if conv.ID == currentID {
			mark = "* "
		}
		title := util.PadWidth(util.TruncateWidth(conv.Title, titleW), titleW)
		row := mark +
			util.PadWidth(fmt.Sprintf("%d", i+1), numW) +
			title + " " +
			fmt.Sprintf("%*d", countW, len(conv.Messages)) + "  " +
			r.formatTime(conv.UpdatedAt)
		if conv.ID == currentID {
			row = st.selected.Render(row)
		}
		sb.WriteString(row)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *Renderer) formatTime(ms int64) string {
	return time.UnixMilli(ms).In(r.loc).Format("2006-01-02 15:04")
}

// =============================================================================
// STATUS LINES
// =============================================================================

// Success renders a success line.
func (r *Renderer) Success(text string) string {
	st, _ := r.snapshot()
	return st.success.Render("[OK] ") + text
}

// Info renders an informational line.
func (r *Renderer) Info(text string) string {
	st, _ := r.snapshot()
	return st.info.Render(text)
}

// Warning renders a warning line.
func (r *Renderer) Warning(text string) string {
	st, _ := r.snapshot()
	return st.warning.Render("[!] " + text)
}

// Error renders an error line.
func (r *Renderer) Error(text string) string {
	st, _ := r.snapshot()
	return st.err.Render("[ERROR] ") + text
}

// Title renders a heading.
func (r *Renderer) Title(text string) string {
	st, _ := r.snapshot()
	return st.title.Render(text)
}

// Muted renders secondary text.
func (r *Renderer) Muted(text string) string {
	st, _ := r.snapshot()
	return st.muted.Render(text)
}

// KeyValue renders an aligned label and value.
func (r *Renderer) KeyValue(label, value string, labelWidth int) string {
	st, _ := r.snapshot()
	return st.muted.Render(util.PadWidth(label, labelWidth)) + st.text.Render(value)
}
