// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties the conversation manager to the chat transport.
//
// A Controller owns one conversation.Manager and one chat client for the
// lifetime of a CLI session. It serializes user submissions (a second
// Submit while one is in flight fails with ErrBusy), turns transport
// failures into a fallback assistant message plus a Notice, and runs a
// periodic autosave of the in-memory conversation.
//
// # Usage
//
//	ctrl := session.NewController(mgr, client, prefs, session.DefaultConfig())
//	go ctrl.Run(ctx)
//	res, err := ctrl.Submit(ctx, "Flights from Boston to Dublin next Friday")
package session
