// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flybuddy/internal/model"
	"github.com/jeranaias/flybuddy/internal/util"
)

// TravelData renders flight and hotel cards, laid out side by side when the
// terminal is wide enough.
func (r *Renderer) TravelData(data *model.TravelData) string {
	if data == nil || data.IsEmpty() {
		return ""
	}
	var sections []string
	if data.HasFlights() {
		cards := make([]string, len(data.Flights))
		for i, f := range data.Flights {
			cards[i] = r.FlightCard(f)
		}
		sections = append(sections, r.layout(cards))
	}
	if data.HasHotels() {
		cards := make([]string, len(data.Hotels))
		for i, h := range data.Hotels {
			cards[i] = r.HotelCard(h)
		}
		sections = append(sections, r.layout(cards))
	}
	return strings.Join(sections, "\n")
}

// layout arranges cards into rows that fit the width.
func (r *Renderer) layout(cards []string) string {
	perRow := max((r.width+cardGap)/(cardWidth+cardGap), 1)
	if perRow == 1 {
		return strings.Join(cards, "\n")
	}

	gap := strings.Repeat(" ", cardGap)
	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := min(start+perRow, len(cards))
		var parts []string
		for i, c := range cards[start:end] {
			if i > 0 {
				parts = append(parts, gap)
			}
			parts = append(parts, c)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}
	return strings.Join(rows, "\n")
}

// inner is the text width inside a card (border and padding removed).
func (r *Renderer) inner() int {
	return min(cardWidth, r.width) - 4
}

// titleLine puts title on the left and price on the right.
func titleLine(st styles, title, price string, width int) string {
	priceW := util.StringWidth(price)
	titleW := width - priceW - 1
	if priceW == 0 {
		titleW = width
	}
	title = util.PadWidth(util.TruncateWidth(title, titleW), titleW)
	line := st.cardTitle.Render(title)
	if priceW > 0 {
		line += " " + st.price.Render(price)
	}
	return line
}

// FlightCard renders one flight option.
func (r *Renderer) FlightCard(f model.FlightInfo) string {
	st, _ := r.snapshot()
	w := r.inner()

	name := strings.TrimSpace(f.Airline + " " + f.FlightNumber)
	if name == "" {
		name = "Flight"
	}
	lines := []string{titleLine(st, name, f.Price.String(), w)}

	if f.Departure.Airport != "" || f.Arrival.Airport != "" {
		route := fmt.Sprintf("%s %s -> %s %s",
			f.Departure.Airport, f.Departure.Time, f.Arrival.Airport, f.Arrival.Time)
		lines = append(lines, st.text.Render(util.TruncateWidth(strings.TrimSpace(route), w)))
	}

	var meta []string
	if f.Duration != "" {
		meta = append(meta, f.Duration.String())
	}
	meta = append(meta, stopsLabel(f.Stops))
	if f.Aircraft != "" {
		meta = append(meta, f.Aircraft)
	}
	lines = append(lines, st.muted.Render(util.TruncateWidth(strings.Join(meta, " · "), w)))

	if f.Details != "" {
		lines = append(lines, st.muted.Render(util.TruncateWidth(f.Details, w)))
	}
	return st.card.Width(w + 2).Render(strings.Join(lines, "\n"))
}

// HotelCard renders one hotel option.
func (r *Renderer) HotelCard(h model.HotelInfo) string {
	st, _ := r.snapshot()
	w := r.inner()

	price := h.Price.String()
	if price != "" && h.Currency != "" {
		price += " " + h.Currency
	}
	name := h.Name
	if name == "" {
		name = "Hotel"
	}
	lines := []string{titleLine(st, name, price, w)}

	var place []string
	if h.Location != "" {
		place = append(place, h.Location)
	}
	if h.HotelClass != "" {
		place = append(place, h.HotelClass.String())
	} else if h.PropertyType != "" {
		place = append(place, h.PropertyType)
	}
	if h.Distance != "" {
		place = append(place, h.Distance)
	}
	if len(place) > 0 {
		lines = append(lines, st.text.Render(util.TruncateWidth(strings.Join(place, " · "), w)))
	}

	if h.Rating != "" {
		rating := "★ " + h.Rating.String()
		if h.Reviews != "" {
			rating += " (" + h.Reviews.String() + " reviews)"
		}
		lines = append(lines, st.price.Render(util.TruncateWidth(rating, w)))
	}
	if len(h.Amenities) > 0 {
		lines = append(lines, st.muted.Render(util.TruncateWidth(strings.Join(h.Amenities, ", "), w)))
	}
	if h.Link != "" {
		lines = append(lines, st.info.Render(util.TruncateWidth(h.Link, w)))
	}
	return st.card.Width(w + 2).Render(strings.Join(lines, "\n"))
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
