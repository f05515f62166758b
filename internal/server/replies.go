// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"math/rand/v2"
	"strings"

	"github.com/jeranaias/flybuddy/internal/model"
)

// ReplyType classifies a canned reply.
type ReplyType string

const (
	ReplyFlights     ReplyType = "flight_search"
	ReplyHotels      ReplyType = "hotel_search"
	ReplyItinerary   ReplyType = "itinerary_planning"
	ReplyDestination ReplyType = "destination_recommendation"
	ReplyGeneral     ReplyType = "general_assistance"
)

// Reply is a canned answer to a chat message.
type Reply struct {
	Type    ReplyType
	Message string
	Data    *model.TravelData
}

// keywords are checked in order; the first matching group wins.
var keywords = []struct {
	kind  ReplyType
	words []string
}{
	{ReplyFlights, []string{"flight", "fly", "airline", "airport"}},
	{ReplyHotels, []string{"hotel", "accommodation", "stay", "room"}},
	{ReplyItinerary, []string{"itinerary", "plan", "schedule", "trip"}},
	{ReplyDestination, []string{"destination", "where", "recommend", "suggest"}},
}

// Classify picks the reply type for a message by keyword.
func Classify(message string) ReplyType {
	lower := strings.ToLower(message)
	for _, group := range keywords {
		for _, word := range group.words {
			if strings.Contains(lower, word) {
				return group.kind
			}
		}
	}
	return ReplyGeneral
}

// MockReply builds the canned reply for message.
func MockReply(message string) Reply {
	kind := Classify(message)
	reply := Reply{Type: kind}

	switch kind {
	case ReplyFlights:
		reply.Message = "I found several flight options for your request. Here are some great deals:\n\n" +
			"**Flight Options:**\n" +
			"- Delta Airlines: $299 (Direct flight)\n" +
			"- American Airlines: $275 (1 stop)\n" +
			"- United Airlines: $320 (Direct flight)\n\n" +
			"Would you like me to help you book one of these flights or search for different dates?"
		reply.Data = &model.TravelData{Flights: mockFlights()}

	case ReplyHotels:
		reply.Message = "I found some excellent hotel options for you:\n\n" +
			"**Hotel Recommendations:**\n" +
			"- Grand Plaza Hotel: $150/night (4.5)\n" +
			"- City Center Inn: $89/night (4.2)\n" +
			"- Luxury Resort & Spa: $280/night (4.8)\n\n" +
			"All hotels include free WiFi and breakfast. Would you like more details about any of these options?"
		reply.Data = &model.TravelData{Hotels: mockHotels()}

	case ReplyItinerary:
		reply.Message = "I'd be happy to help you plan your trip! Here's a suggested itinerary:\n\n" +
			"**3-Day Itinerary:**\n\n" +
			"**Day 1:** Arrival & City Exploration\n- Check into hotel\n- Visit downtown area\n- Dinner at local restaurant\n\n" +
			"**Day 2:** Main Attractions\n- Morning: Museum tour\n- Afternoon: Scenic viewpoint\n- Evening: Cultural show\n\n" +
			"**Day 3:** Departure\n- Last-minute shopping\n- Airport transfer\n\n" +
			"Would you like me to customize this itinerary based on your specific interests?"

	case ReplyDestination:
		reply.Message = "Based on current trends and seasonal considerations, here are some destinations I'd recommend:\n\n" +
			"**Beach Destinations:**\n- Maldives (Perfect for relaxation)\n- Bali, Indonesia (Culture + beaches)\n- Santorini, Greece (Romantic getaway)\n\n" +
			"**Adventure Destinations:**\n- Swiss Alps (Hiking & skiing)\n- New Zealand (Outdoor activities)\n- Costa Rica (Wildlife & nature)\n\n" +
			"**Cultural Destinations:**\n- Kyoto, Japan (Traditional culture)\n- Rome, Italy (Historical sites)\n- Istanbul, Turkey (East meets West)\n\n" +
			"What type of experience are you looking for?"

	default:
		reply.Message = "Thank you for your question! I'm here to help you with all your travel needs. I can assist you with:\n\n" +
			"- **Flight bookings** - Find the best deals and routes\n" +
			"- **Hotel reservations** - Discover perfect accommodations\n" +
			"- **Trip planning** - Create detailed itineraries\n" +
			"- **Destination advice** - Get personalized recommendations\n" +
			"- **Budget planning** - Optimize your travel expenses\n\n" +
			"What specific aspect of your travel would you like help with?"
	}
	return reply
}

func mockFlights() []model.FlightInfo {
	return []model.FlightInfo{
		{
			Airline:      "Delta",
			FlightNumber: "DL 401",
			Departure:    model.FlightEndpoint{Airport: "JFK", Time: "08:15"},
			Arrival:      model.FlightEndpoint{Airport: "LAX", Time: "11:40"},
			Duration:     "6h 25m",
			Price:        "$299",
			Aircraft:     "Airbus A321",
			Stops:        0,
		},
		{
			Airline:      "American",
			FlightNumber: "AA 1187",
			Departure:    model.FlightEndpoint{Airport: "JFK", Time: "10:05"},
			Arrival:      model.FlightEndpoint{Airport: "LAX", Time: "15:20"},
			Duration:     "8h 15m",
			Price:        "$275",
			Stops:        1,
			Details:      "Connection in DFW",
		},
		{
			Airline:      "United",
			FlightNumber: "UA 612",
			Departure:    model.FlightEndpoint{Airport: "EWR", Time: "13:30"},
			Arrival:      model.FlightEndpoint{Airport: "LAX", Time: "16:55"},
			Duration:     "6h 25m",
			Price:        "$320",
			Aircraft:     "Boeing 757-200",
			Stops:        0,
		},
	}
}

func mockHotels() []model.HotelInfo {
	return []model.HotelInfo{
		{
			Name:         "Grand Plaza Hotel",
			Location:     "Downtown",
			Rating:       "4.5",
			Reviews:      "2,318",
			Price:        "150",
			Currency:     "USD",
			HotelClass:   "4-star hotel",
			PropertyType: "hotel",
			Amenities:    []string{"Free WiFi", "Breakfast", "Gym"},
		},
		{
			Name:         "City Center Inn",
			Location:     "Old Town",
			Rating:       "4.2",
			Reviews:      "874",
			Price:        "89",
			Currency:     "USD",
			HotelClass:   "3-star hotel",
			PropertyType: "inn",
			Amenities:    []string{"Free WiFi", "Breakfast"},
		},
		{
			Name:         "Luxury Resort & Spa",
			Location:     "Beachfront",
			Rating:       "4.8",
			Reviews:      "1,102",
			Price:        "280",
			Currency:     "USD",
			HotelClass:   "5-star hotel",
			PropertyType: "resort",
			Amenities:    []string{"Free WiFi", "Breakfast", "Spa", "Pool"},
		},
	}
}

var suggestions = map[ReplyType][]string{
	ReplyFlights: {
		"Show me hotels in the same area",
		"What's the baggage policy for these airlines?",
		"Can you find flights for different dates?",
		"Tell me about airport transportation options",
	},
	ReplyHotels: {
		"Find flights to this destination",
		"What are the local attractions nearby?",
		"Show me restaurant recommendations",
		"What's the cancellation policy?",
	},
	ReplyItinerary: {
		"Find flights for these dates",
		"Recommend hotels for this itinerary",
		"What's the weather like during this time?",
		"Suggest local restaurants and activities",
	},
	ReplyDestination: {
		"What's the best time to visit?",
		"Find flights to these destinations",
		"What's the average cost for this trip?",
		"Which of these is best for families?",
	},
	ReplyGeneral: {
		"Help me plan a weekend getaway",
		"Find flights for my next business trip",
		"Recommend family-friendly destinations",
		"What are the current travel restrictions?",
	},
}

// Suggestions returns three follow-up prompts for a reply type in random
// order. A nil rng uses the global source.
func Suggestions(kind ReplyType, rng *rand.Rand) []string {
	pool, ok := suggestions[kind]
	if !ok {
		pool = suggestions[ReplyGeneral]
	}
	picked := append([]string(nil), pool...)
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:min(3, len(picked))]
}
