// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import "math/rand/v2"

// fallbackReplies are shown when the chat service cannot answer.
var fallbackReplies = []string{
	"I'm having trouble reaching the travel service right now. Please try again in a moment.",
	"Sorry, I couldn't get an answer in time. Could you ask me again?",
	"The travel search is taking a break. Please retry shortly, your conversation has been saved.",
	"I can't connect to the flight and hotel search at the moment. Let's try that again soon.",
	"Something went wrong on my side. Give it another go and I'll do my best to help.",
}

// FallbackReply returns a canned reply chosen at random. A nil rng uses the
// package-level source.
func FallbackReply(rng *rand.Rand) string {
	if rng == nil {
		return fallbackReplies[rand.IntN(len(fallbackReplies))]
	}
	return fallbackReplies[rng.IntN(len(fallbackReplies))]
}

// FallbackReplies returns a copy of every canned reply.
func FallbackReplies() []string {
	return append([]string(nil), fallbackReplies...)
}
