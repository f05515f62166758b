// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport sends user messages to the travel-assistant chat
// endpoint and decodes its replies.
//
// Each Send is a single POST with a bounded timeout (30 seconds unless
// configured otherwise). There are no retries: callers receive ErrTimeout,
// a *RemoteError or a *NetworkError and are expected to show FallbackReply
// instead of the missing answer.
//
// The client also exposes the endpoint's health check and feedback calls.
package transport
