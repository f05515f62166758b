// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/util"
)

var at = time.Date(2025, 11, 1, 9, 30, 0, 0, time.UTC)

func newTestRenderer(width int, markdown bool) *Renderer {
	profile := termenv.Ascii
	return New(Options{
		Output:   &bytes.Buffer{},
		Profile:  &profile,
		Theme:    model.ThemeDark,
		Width:    width,
		Markdown: markdown,
		Location: time.UTC,
	})
}

func sampleFlight() model.FlightInfo {
	return model.FlightInfo{
		Airline:      "Delta",
		FlightNumber: "DL 401",
		Departure:    model.FlightEndpoint{Airport: "JFK", Time: "08:15"},
		Arrival:      model.FlightEndpoint{Airport: "LAX", Time: "11:40"},
		Duration:     "6h 25m",
		Price:        "$299",
		Aircraft:     "Airbus A321",
	}
}

func sampleHotel() model.HotelInfo {
	return model.HotelInfo{
		Name:       "Grand Plaza Hotel",
		Location:   "Downtown",
		Rating:     "4.5",
		Reviews:    "2,318",
		Price:      "150",
		Currency:   "USD",
		HotelClass: "4-star hotel",
		Amenities:  []string{"Free WiFi", "Breakfast"},
	}
}

func TestTerminalWidth(t *testing.T) {
	assert.Equal(t, 100, TerminalWidth(100))
	assert.Equal(t, MinTerminalWidth, TerminalWidth(10))
	assert.GreaterOrEqual(t, TerminalWidth(0), MinTerminalWidth)
}

func TestColorsEnabled(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("FORCE_COLOR", "1")
	assert.False(t, ColorsEnabled())
	assert.Equal(t, termenv.Ascii, ColorProfile())

	t.Setenv("NO_COLOR", "")
	assert.True(t, ColorsEnabled())
}

func TestResolveTheme(t *testing.T) {
	assert.Equal(t, model.ThemeLight, ResolveTheme("light"))
	assert.Equal(t, model.ThemeDark, ResolveTheme("dark"))
	assert.Equal(t, DetectTheme(), ResolveTheme("auto"))
}

func TestPaletteFor(t *testing.T) {
	assert.Equal(t, lightPalette, PaletteFor(model.ThemeLight))
	assert.Equal(t, darkPalette, PaletteFor(model.ThemeDark))
	assert.NotEqual(t, PaletteFor(model.ThemeLight).Accent, PaletteFor(model.ThemeDark).Accent)
}

func TestRenderer_SetTheme(t *testing.T) {
	r := newTestRenderer(80, true)
	assert.Equal(t, model.ThemeDark, r.Theme())
	r.SetTheme(model.ThemeLight)
	assert.Equal(t, model.ThemeLight, r.Theme())
	assert.Equal(t, "notty", r.glamourStyle(), "ascii output never uses a colored style")
}

func TestFlightCard(t *testing.T) {
	r := newTestRenderer(100, false)
	card := r.FlightCard(sampleFlight())

	assert.Contains(t, card, "Delta DL 401")
	assert.Contains(t, card, "$299")
	assert.Contains(t, card, "JFK 08:15 -> LAX 11:40")
	assert.Contains(t, card, "6h 25m · nonstop · Airbus A321")
	assert.Equal(t, cardWidth, lipgloss.Width(card))
	for _, line := range strings.Split(card, "\n") {
		assert.Equal(t, cardWidth, util.StringWidth(line), line)
	}
}

func TestHotelCard(t *testing.T) {
	r := newTestRenderer(100, false)
	h := sampleHotel()
	h.Name = "東京ステーションホテル Tokyo Station Hotel Marunouchi"
	card := r.HotelCard(h)

	assert.Contains(t, card, "150 USD")
	assert.Contains(t, card, "Downtown · 4-star hotel")
	assert.Contains(t, card, "★ 4.5 (2,318 reviews)")
	assert.Contains(t, card, "Free WiFi, Breakfast")
	assert.Contains(t, card, "...", "long wide-character names are truncated")
	for _, line := range strings.Split(card, "\n") {
		assert.Equal(t, cardWidth, util.StringWidth(line), line)
	}
}

func TestTravelData_Layout(t *testing.T) {
	data := &model.TravelData{
		Flights: []model.FlightInfo{sampleFlight(), sampleFlight(), sampleFlight()},
	}

	wide := newTestRenderer(100, false).TravelData(data)
	assert.Equal(t, 2*cardWidth+cardGap, lipgloss.Width(wide), "two cards per row at 100 columns")

	narrow := newTestRenderer(40, false).TravelData(data)
	assert.Equal(t, cardWidth, lipgloss.Width(narrow))
	assert.Equal(t, 3, strings.Count(narrow, "Delta DL 401"))

	assert.Empty(t, newTestRenderer(80, false).TravelData(nil))
	assert.Empty(t, newTestRenderer(80, false).TravelData(&model.TravelData{}))
}

func TestMessage(t *testing.T) {
	r := newTestRenderer(100, false)

	user := model.NewMessage("m1", model.SenderUser, "Find flights to LA", nil, at)
	out := r.Message(user)
	assert.True(t, strings.HasPrefix(out, "You 09:30\n"), out)
	assert.Contains(t, out, "Find flights to LA")

	liked := true
	reply := model.NewMessage("m2", model.SenderAssistant, "Here you go.",
		&model.TravelData{Hotels: []model.HotelInfo{sampleHotel()}}, at)
	reply.Liked = &liked
	out = r.Message(reply)
	assert.True(t, strings.HasPrefix(out, "FlyBuddy 09:30 ♥\n"), out)
	assert.Contains(t, out, "Grand Plaza Hotel")
}

func TestMessage_Markdown(t *testing.T) {
	r := newTestRenderer(80, true)
	reply := model.NewMessage("m2", model.SenderAssistant, "**Flight Options:**\n\n- Delta: $299\n- United: $320", nil, at)
	out := r.Message(reply)
	assert.Contains(t, out, "Flight Options:")
	assert.Contains(t, out, "Delta: $299")
	assert.Contains(t, out, "United: $320")
}

func TestConversation(t *testing.T) {
	r := newTestRenderer(100, false)

	conv := model.NewConversation("c1", at)
	empty := r.Conversation(conv)
	assert.Contains(t, empty, "New Chat")
	assert.Contains(t, empty, "No messages yet.")

	conv.Append(model.NewMessage("m1", model.SenderUser, "hotel in Rome", nil, at), at)
	conv.Append(model.NewMessage("m2", model.SenderAssistant, "First reply", nil, at), at)
	conv.Append(model.NewMessage("m3", model.SenderUser, "more", nil, at), at)
	conv.Append(model.NewMessage("m4", model.SenderAssistant, "Second reply", nil, at), at)

	out := r.Conversation(conv)
	assert.Contains(t, out, "hotel in Rome\n")
	assert.Contains(t, out, "4 messages, updated 2025-11-01 09:30")
	assert.Contains(t, out, "#1 FlyBuddy")
	assert.Contains(t, out, "#2 FlyBuddy")
	assert.NotContains(t, out, "#3")
}

func TestConversationList(t *testing.T) {
	r := newTestRenderer(80, false)
	assert.Contains(t, r.ConversationList(nil, ""), "No saved conversations.")

	a := model.NewConversation("a", at)
	a.Title = "Find flights from New York to London on 7 November"
	b := model.NewConversation("b", at)
	b.Title = "京都の旅館を探しています。二泊三日で、温泉付きの部屋がいいです。予算は一泊三万円まで"
	c := model.NewConversation("c", at)

	out := r.ConversationList([]model.Conversation{a, b, c}, "b")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	width := util.StringWidth(lines[1])
	for _, line := range lines[1:] {
		assert.Equal(t, width, util.StringWidth(line), "rows align: %q", line)
	}
	assert.True(t, strings.HasPrefix(lines[2], "* 2"), lines[2])
	assert.True(t, strings.HasPrefix(lines[1], "  1"), lines[1])
	assert.Contains(t, lines[2], "...")
	assert.Contains(t, lines[3], "New Chat")
}

func TestSuggestionsAndStatus(t *testing.T) {
	r := newTestRenderer(80, false)
	assert.Empty(t, r.Suggestions(nil))

	out := r.Suggestions([]string{"Show me hotels", "Different dates?"})
	assert.Contains(t, out, "Try asking:")
	assert.Contains(t, out, "  - Show me hotels")

	assert.Equal(t, "[OK] saved", r.Success("saved"))
	assert.Equal(t, "[!] slow", r.Warning("slow"))
	assert.Equal(t, "[ERROR] bad", r.Error("bad"))
	assert.Equal(t, "Theme     dark", r.KeyValue("Theme", "dark", 10))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "short", WrapText("short", 20))
	assert.Equal(t, "one two\nthree", WrapText("one two three", 8))
	assert.Equal(t, "keep\n\nlines", WrapText("keep\n\nlines", 3))
	assert.Equal(t, "supercalifragilistic\nword", WrapText("supercalifragilistic word", 8))
	assert.Equal(t, "東京\n大阪", WrapText("東京 大阪", 5))
	assert.Equal(t, "unchanged text", WrapText("unchanged text", 0))
}
