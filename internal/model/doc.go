// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by storage, the conversation
// manager, the chat transport and the renderer.
//
// # Key Types
//
//   - Conversation: ordered, append-only list of messages plus title and draft
//   - Message: a single user or assistant turn, optionally carrying TravelData
//   - TravelData: flight and hotel display records attached to a reply
//   - Settings: user preferences persisted next to the conversation list
//   - Theme: light or dark rendering
//
// Timestamps are epoch milliseconds so persisted values are stable across
// backends and match the wire format of the chat endpoint.
//
// # Usage
//
//	conv := model.NewConversation(id, time.Now())
//	msg := model.NewMessage(msgID, model.SenderUser, "Flights to Lisbon?", nil, time.Now())
//	conv.Append(msg, time.Now())
package model
