// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// =============================================================================
// TRAVEL DATA
// =============================================================================

// TravelData is the structured payload attached to an assistant reply.
// A category is present when its slice is non-empty.
type TravelData struct {
	Flights  []FlightInfo `json:"flights,omitempty"`
	Hotels   []HotelInfo  `json:"hotels,omitempty"`
	ThreadID string       `json:"thread_id,omitempty"`
}

// HasFlights reports whether flight records are present.
func (d *TravelData) HasFlights() bool {
	return d != nil && len(d.Flights) > 0
}

// HasHotels reports whether hotel records are present.
func (d *TravelData) HasHotels() bool {
	return d != nil && len(d.Hotels) > 0
}

// IsEmpty reports whether there is nothing to display.
func (d *TravelData) IsEmpty() bool {
	return !d.HasFlights() && !d.HasHotels()
}

// Clone returns a deep copy. A nil receiver yields nil.
func (d *TravelData) Clone() *TravelData {
	if d == nil {
		return nil
	}
	out := &TravelData{ThreadID: d.ThreadID}
	if d.Flights != nil {
		out.Flights = append([]FlightInfo(nil), d.Flights...)
	}
	if d.Hotels != nil {
		out.Hotels = make([]HotelInfo, len(d.Hotels))
		for i, h := range d.Hotels {
			h.Amenities = append([]string(nil), h.Amenities...)
			out.Hotels[i] = h
		}
	}
	return out
}

// FlightEndpoint is one end of a flight leg.
type FlightEndpoint struct {
	Airport string `json:"airport"`
	Time    string `json:"time"`
}

// FlightInfo is a display record for a single flight option.
type FlightInfo struct {
	Airline      string         `json:"airline"`
	FlightNumber string         `json:"flightNumber"`
	Departure    FlightEndpoint `json:"departure"`
	Arrival      FlightEndpoint `json:"arrival"`
	Duration     Text           `json:"duration"`
	Price        Text           `json:"price"`
	Aircraft     string         `json:"aircraft,omitempty"`
	Stops        int            `json:"stops"`
	Details      string         `json:"details,omitempty"`
}

// HotelInfo is a display record for a single hotel option.
type HotelInfo struct {
	Name         string   `json:"name"`
	Location     string   `json:"location,omitempty"`
	Rating       Text     `json:"rating,omitempty"`
	Reviews      Text     `json:"reviews,omitempty"`
	Price        Text     `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	HotelClass   Text     `json:"hotel_class,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Distance     string   `json:"distance,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	Image        string   `json:"image,omitempty"`
	Link         string   `json:"link,omitempty"`
}

// =============================================================================
// TEXT
// =============================================================================

// Text is a display string that also accepts JSON numbers.
// The chat endpoint sends prices and ratings either formatted or raw.
type Text string

// UnmarshalJSON accepts a string, a number or null.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		*t = Text(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*t = Text(n.String())
	return nil
}

// String returns the text value.
func (t Text) String() string {
	return string(t)
}
